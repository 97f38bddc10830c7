// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

// Package lock implements the per-asset reservation primitive. A lock is
// held by a (protocol run, reservation) pair and is durably reflected in the
// asset row's status column, so it survives process restarts and is visible
// to every reader of the asset table.
package lock

import (
	"time"

	"github.com/maraxen/pylabpraxis-sub002/pkg/accession"
	"github.com/maraxen/pylabpraxis-sub002/pkg/constant"
)

// propertyKeyLock is the member of properties_json that carries the lock
// stamp while an asset is held.
const propertyKeyLock = "_lock"

// Stamp member keys.
const (
	stampRunID       = "protocol_run_accession_id"
	stampReservation = "reservation_accession_id"
	stampPriorStatus = "prior_status"
	stampRole        = "role"
	stampAcquiredAt  = "acquired_at"
)

// AssetLock identifies one reservation request. ReservationID is minted by
// the acquirer and returned to it for later release.
type AssetLock struct {
	AssetType     constant.AssetType
	AssetName     string
	ProtocolRunID string
	ReservationID string

	// TimeoutSeconds > 0 makes AcquireWithTimeout poll until the deadline.
	TimeoutSeconds int
}

// NewAssetLock mints a lock request with a fresh reservation id.
func NewAssetLock(assetType constant.AssetType, assetName, protocolRunID string) *AssetLock {
	return &AssetLock{
		AssetType:     assetType,
		AssetName:     assetName,
		ProtocolRunID: protocolRunID,
		ReservationID: accession.NewID(),
	}
}

// Availability is a read-only snapshot of an asset's lock state.
type Availability struct {
	AssetType     constant.AssetType `json:"asset_type"`
	AssetName     string             `json:"asset_name"`
	Status        string             `json:"status"`
	Locked        bool               `json:"locked"`
	ProtocolRunID string             `json:"protocol_run_accession_id,omitempty"`
	ReservationID string             `json:"reservation_accession_id,omitempty"`
	AcquiredAt    *time.Time         `json:"acquired_at,omitempty"`
}
