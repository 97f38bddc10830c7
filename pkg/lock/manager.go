// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package lock

import (
	"context"
	"time"

	"github.com/maraxen/pylabpraxis-sub002/pkg/accession"
	"github.com/maraxen/pylabpraxis-sub002/pkg/backoff"
	"github.com/maraxen/pylabpraxis-sub002/pkg/constant"
	"github.com/maraxen/pylabpraxis-sub002/pkg/database"
	"github.com/maraxen/pylabpraxis-sub002/pkg/database/model"
	"github.com/maraxen/pylabpraxis-sub002/pkg/logger/log"
)

// Poll pacing for timed acquisition waits.
const (
	acquirePollInitialInterval = 250 * time.Millisecond
	acquirePollMaxInterval     = 2 * time.Second
)

type lockRole string

const (
	roleMachine  lockRole = "machine"
	roleResource lockRole = "resource"
)

// Manager serializes reservation state onto asset rows. Every mutation is a
// single read-check-write transaction against the asset table; no advisory
// locks are used.
type Manager struct {
	assets database.AssetFacadeInterface
	clock  accession.Clock
}

// NewManager creates a lock manager over the asset facade.
func NewManager(assets database.AssetFacadeInterface, clock accession.Clock) *Manager {
	if clock == nil {
		clock = accession.SystemClock{}
	}
	return &Manager{assets: assets, clock: clock}
}

// Acquire attempts to take the lock once. It returns false when the asset is
// missing, its type does not match, or it is not in an acquirable status.
// An asset already held by the same run is a reentrant success; the original
// reservation stays the owner.
//
// A linked machine/resource counterpart pair is one physical device and one
// lock unit: both rows share the lock name, both must be available, and both
// are flipped together, so the pair can never be split across two runs.
func (m *Manager) Acquire(ctx context.Context, lck *AssetLock) (bool, error) {
	acquired := false
	err := m.assets.Transaction(ctx, func(tx database.AssetFacadeInterface) error {
		rows, err := tx.ListByNameForUpdate(ctx, lck.AssetName)
		if err != nil {
			return err
		}
		target := pickRoleRow(lck.AssetType, rows)
		if target == nil {
			return nil
		}
		unit := lockUnit(target, rows)

		// A held unit is a reentrant success for its owning run and a
		// denial for everyone else, whichever role was requested.
		for _, row := range unit {
			if row.CurrentProtocolRunID != nil {
				if *row.CurrentProtocolRunID == lck.ProtocolRunID {
					acquired = true
				}
				return nil
			}
		}
		for _, row := range unit {
			if !rowAvailable(row) {
				return nil
			}
		}

		for _, row := range unit {
			switch rowRole(row) {
			case roleMachine:
				prior := string(*row.MachineStatus)
				status := constant.MachineStatusInUse
				row.MachineStatus = &status
				m.stamp(row, lck, roleMachine, prior)
			case roleResource:
				prior := string(*row.ResourceStatus)
				status := constant.ResourceStatusInUse
				row.ResourceStatus = &status
				m.stamp(row, lck, roleResource, prior)
			}
			row.CurrentProtocolRunID = &lck.ProtocolRunID
			if err := tx.Update(ctx, row); err != nil {
				return err
			}
		}
		acquired = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return acquired, nil
}

// AcquireWithTimeout polls Acquire until it succeeds, the lock's timeout
// elapses, or ctx is done. A zero timeout degenerates to a single attempt.
func (m *Manager) AcquireWithTimeout(ctx context.Context, lck *AssetLock) (bool, error) {
	if lck.TimeoutSeconds <= 0 {
		return m.Acquire(ctx, lck)
	}

	deadline := time.Now().Add(time.Duration(lck.TimeoutSeconds) * time.Second)
	return backoff.PollUntil(ctx, func() (bool, error) {
		return m.Acquire(ctx, lck)
	}, deadline, acquirePollInitialInterval, acquirePollMaxInterval)
}

// Release frees the lock when the recorded reservation matches. A non-empty
// protocolRunID must additionally match the recorded owner. Mismatches and
// absent locks return false, making double-release idempotent. The pre-lock
// status is restored only if the asset is still IN_USE; callers that already
// set a final status keep it. Releasing either half of a counterpart pair
// releases both.
func (m *Manager) Release(ctx context.Context, assetType constant.AssetType, assetName, reservationID, protocolRunID string) (bool, error) {
	released := false
	err := m.assets.Transaction(ctx, func(tx database.AssetFacadeInterface) error {
		rows, err := tx.ListByNameForUpdate(ctx, assetName)
		if err != nil {
			return err
		}
		target := pickRoleRow(assetType, rows)
		if target == nil {
			return nil
		}

		for _, row := range lockUnit(target, rows) {
			stamp, ok := row.Properties.GetBag(propertyKeyLock)
			if !ok {
				continue
			}
			if stamp.GetString(stampReservation) != reservationID {
				continue
			}
			if protocolRunID != "" && stamp.GetString(stampRunID) != protocolRunID {
				continue
			}
			m.clearStamp(row, stamp)
			if err := tx.Update(ctx, row); err != nil {
				return err
			}
			released = true
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return released, nil
}

// ReleaseAllProtocolLocks frees every lock held by the run and returns how
// many assets were released. Reservation ids are not consulted: the run owns
// all of its locks. Called unconditionally from the executor's terminal path,
// so it must tolerate runs that hold nothing.
func (m *Manager) ReleaseAllProtocolLocks(ctx context.Context, protocolRunID string) (int, error) {
	held, err := m.assets.List(ctx, &database.AssetFilter{
		CurrentProtocolRunID: &protocolRunID,
	})
	if err != nil {
		return 0, err
	}

	count := 0
	for _, asset := range held {
		id := asset.AccessionID
		err := m.assets.Transaction(ctx, func(tx database.AssetFacadeInterface) error {
			row, err := tx.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if row == nil || row.CurrentProtocolRunID == nil || *row.CurrentProtocolRunID != protocolRunID {
				return nil
			}
			stamp, _ := row.Properties.GetBag(propertyKeyLock)
			m.clearStamp(row, stamp)
			if err := tx.Update(ctx, row); err != nil {
				return err
			}
			count++
			return nil
		})
		if err != nil {
			// Keep releasing the rest; a stuck release must not strand
			// every other asset of the run.
			log.Errorf("release all: asset %s for run %s: %v", id, protocolRunID, err)
		}
	}
	return count, nil
}

// CheckAssetAvailability returns the asset's current lock state, or nil when
// no asset matches the identity. For a counterpart pair the half matching the
// requested role is reported.
func (m *Manager) CheckAssetAvailability(ctx context.Context, assetType constant.AssetType, assetName string) (*Availability, error) {
	rows, err := m.assets.ListByName(ctx, assetName)
	if err != nil {
		return nil, err
	}
	row := pickRoleRow(assetType, rows)
	if row == nil {
		return nil, nil
	}

	avail := &Availability{
		AssetType: row.AssetType,
		AssetName: row.Name,
	}
	switch rowRole(row) {
	case roleMachine:
		if row.MachineStatus != nil {
			avail.Status = string(*row.MachineStatus)
		}
		avail.Locked = row.MachineStatus != nil && *row.MachineStatus == constant.MachineStatusInUse
	case roleResource:
		if row.ResourceStatus != nil {
			avail.Status = string(*row.ResourceStatus)
		}
		avail.Locked = row.ResourceStatus != nil && *row.ResourceStatus == constant.ResourceStatusInUse
	}

	if stamp, ok := row.Properties.GetBag(propertyKeyLock); ok {
		avail.ProtocolRunID = stamp.GetString(stampRunID)
		avail.ReservationID = stamp.GetString(stampReservation)
		if raw := stamp.GetString(stampAcquiredAt); raw != "" {
			if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
				avail.AcquiredAt = &ts
			}
		}
	} else if row.CurrentProtocolRunID != nil {
		avail.ProtocolRunID = *row.CurrentProtocolRunID
	}
	return avail, nil
}

func (m *Manager) stamp(row *model.Asset, lck *AssetLock, role lockRole, priorStatus string) {
	props := row.Properties.Clone()
	if props == nil {
		props = model.JSONBag{}
	}
	props[propertyKeyLock] = map[string]interface{}{
		stampRunID:       lck.ProtocolRunID,
		stampReservation: lck.ReservationID,
		stampPriorStatus: priorStatus,
		stampRole:        string(role),
		stampAcquiredAt:  m.clock.Now().Format(time.RFC3339Nano),
	}
	row.Properties = props
}

// clearStamp removes the lock stamp, clears the owning run, and restores the
// stamped pre-lock status on whichever role column is still IN_USE.
func (m *Manager) clearStamp(row *model.Asset, stamp model.JSONBag) {
	if stamp != nil {
		prior := stamp.GetString(stampPriorStatus)
		switch lockRole(stamp.GetString(stampRole)) {
		case roleMachine:
			if prior != "" && row.MachineStatus != nil && *row.MachineStatus == constant.MachineStatusInUse {
				status := constant.MachineStatus(prior)
				row.MachineStatus = &status
			}
		case roleResource:
			if prior != "" && row.ResourceStatus != nil && *row.ResourceStatus == constant.ResourceStatusInUse {
				status := constant.ResourceStatus(prior)
				row.ResourceStatus = &status
			}
		}
	}

	if row.Properties != nil {
		props := row.Properties.Clone()
		delete(props, propertyKeyLock)
		row.Properties = props
	}
	row.CurrentProtocolRunID = nil
}

// rowRole resolves which status column governs the row. The halves of a
// counterpart pair are both typed MACHINE_RESOURCE and are told apart by
// which status column is populated.
func rowRole(row *model.Asset) lockRole {
	switch row.AssetType {
	case constant.AssetTypeMachine:
		return roleMachine
	case constant.AssetTypeMachineResource:
		if row.MachineStatus != nil {
			return roleMachine
		}
		return roleResource
	default:
		return roleResource
	}
}

// pickRoleRow selects the row serving the requested role among rows sharing
// one name. Linked pairs contribute two candidates; the half whose own role
// matches the request wins, any other matching row is a fallback.
func pickRoleRow(requested constant.AssetType, rows []*model.Asset) *model.Asset {
	var fallback *model.Asset
	for _, row := range rows {
		want, ok := roleFor(requested, row)
		if !ok {
			continue
		}
		if rowRole(row) == want {
			return row
		}
		if fallback == nil {
			fallback = row
		}
	}
	return fallback
}

// lockUnit expands a target row to the full set of rows that must be flipped
// together: the row itself plus its linked counterpart when one exists.
func lockUnit(target *model.Asset, rows []*model.Asset) []*model.Asset {
	cid := target.CounterpartID()
	if cid == nil {
		return []*model.Asset{target}
	}
	unit := []*model.Asset{target}
	for _, row := range rows {
		if row.AccessionID == *cid {
			unit = append(unit, row)
		}
	}
	return unit
}

func rowAvailable(row *model.Asset) bool {
	switch rowRole(row) {
	case roleMachine:
		return row.MachineStatus != nil && *row.MachineStatus == constant.MachineStatusAvailable
	default:
		return row.ResourceStatus != nil && row.ResourceStatus.IsAcquirable()
	}
}

func roleFor(requested constant.AssetType, row *model.Asset) (lockRole, bool) {
	switch requested {
	case constant.AssetTypeMachine:
		if row.HasMachineRole() {
			return roleMachine, true
		}
	case constant.AssetTypeResource:
		if row.HasResourceRole() {
			return roleResource, true
		}
	case constant.AssetTypeDeck:
		if row.AssetType == constant.AssetTypeDeck {
			return roleResource, true
		}
	case constant.AssetTypeMachineResource:
		if row.AssetType == constant.AssetTypeMachineResource {
			return roleMachine, true
		}
	}
	return "", false
}
