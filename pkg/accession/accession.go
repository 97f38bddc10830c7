// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

// Package accession provides the identifier and clock services shared by
// every persistent entity. Accession ids are UUIDv7 so that lexical ordering
// approximates creation order.
package accession

import (
	"time"

	"github.com/google/uuid"
)

// NewID returns a fresh accession id as a canonical lower-case UUID string.
// UUIDv7 carries a millisecond timestamp prefix; ids generated by one process
// sort in creation order. Falls back to a random UUIDv4 if the monotonic
// source fails, which keeps id generation infallible for callers.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// Parse validates an accession id string.
func Parse(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

// IsValid reports whether s is a well-formed accession id.
func IsValid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// Clock abstracts wall-clock reads so services and facades can be tested
// against pinned time. All timestamps in the store are UTC.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock always returns the same instant. Test use.
type FixedClock struct {
	Time time.Time
}

func (c FixedClock) Now() time.Time {
	return c.Time.UTC()
}
