// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package accession

import (
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDIsUUIDv7(t *testing.T) {
	id := NewID()
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.Equal(t, id, parsed.String(), "id must be canonical lower-case form")
}

func TestNewIDOrdering(t *testing.T) {
	// UUIDv7 ids generated in sequence sort in generation order.
	ids := make([]string, 50)
	for i := range ids {
		ids[i] = NewID()
	}

	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	assert.Equal(t, ids, sorted)
}

func TestNewIDUniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := NewID()
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid(NewID()))
	assert.False(t, IsValid("not-a-uuid"))
	assert.False(t, IsValid(""))
}

func TestSystemClockUTC(t *testing.T) {
	now := SystemClock{}.Now()
	assert.Equal(t, time.UTC, now.Location())
}

func TestFixedClock(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.FixedZone("PST", -8*3600))
	c := FixedClock{Time: at}
	assert.Equal(t, at.UTC(), c.Now())
	assert.Equal(t, time.UTC, c.Now().Location())
}
