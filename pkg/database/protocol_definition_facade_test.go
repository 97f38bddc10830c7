// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package database

import (
	"testing"
	"time"

	"github.com/maraxen/pylabpraxis-sub002/pkg/database/model"
	praxiserrors "github.com/maraxen/pylabpraxis-sub002/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFSDefinition(id, name, version string) *model.FunctionProtocolDefinition {
	return &model.FunctionProtocolDefinition{
		AccessionID:        id,
		Name:               name,
		Version:            version,
		FQN:                "protocols." + name,
		SourceFilePath:     "protocols/" + name + ".py",
		ModuleName:         "protocols." + name,
		FunctionName:       name,
		FileSystemSourceID: strPtr("fss-1"),
		IsTopLevel:         true,
	}
}

func TestProtocolDefinitionFacade_SourceValidation(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup()

	facade := NewProtocolDefinitionFacade().WithDB(helper.DB)
	ctx := helper.CreateTestContext()

	// No source link at all.
	orphan := newFSDefinition("fpd-1", "elisa_prep", "1.0.0")
	orphan.FileSystemSourceID = nil
	err := facade.Create(ctx, orphan)
	require.Error(t, err)
	assert.True(t, praxiserrors.IsCode(err, praxiserrors.CodeInvalidParameter))

	// Both source links.
	double := newFSDefinition("fpd-2", "elisa_prep", "1.0.0")
	double.SourceRepositoryID = strPtr("repo-1")
	double.CommitHash = strPtr("abc123")
	err = facade.Create(ctx, double)
	require.Error(t, err)
	assert.True(t, praxiserrors.IsCode(err, praxiserrors.CodeInvalidParameter))

	// Repository source without a commit hash.
	nocommit := newFSDefinition("fpd-3", "elisa_prep", "1.0.0")
	nocommit.FileSystemSourceID = nil
	nocommit.SourceRepositoryID = strPtr("repo-1")
	err = facade.Create(ctx, nocommit)
	require.Error(t, err)
	assert.True(t, praxiserrors.IsCode(err, praxiserrors.CodeInvalidParameter))

	require.NoError(t, facade.Create(ctx, newFSDefinition("fpd-4", "elisa_prep", "1.0.0")))
}

func TestProtocolDefinitionFacade_GetByFQNPrefersNewest(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup()

	facade := NewProtocolDefinitionFacade().WithDB(helper.DB)
	ctx := helper.CreateTestContext()

	old := newFSDefinition("fpd-1", "elisa_prep", "1.0.0")
	old.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, facade.Create(ctx, old))

	current := newFSDefinition("fpd-2", "elisa_prep", "1.1.0")
	require.NoError(t, facade.Create(ctx, current))

	deprecated := newFSDefinition("fpd-3", "elisa_prep", "2.0.0-beta")
	deprecated.Deprecated = true
	require.NoError(t, facade.Create(ctx, deprecated))

	got, err := facade.GetByFQN(ctx, "protocols.elisa_prep")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "fpd-2", got.AccessionID, "newest non-deprecated wins")

	missing, err := facade.GetByFQN(ctx, "protocols.unknown")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestProtocolDefinitionFacade_VersionUniquenessPerSource(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup()

	facade := NewProtocolDefinitionFacade().WithDB(helper.DB)
	ctx := helper.CreateTestContext()

	require.NoError(t, facade.Create(ctx, newFSDefinition("fpd-1", "elisa_prep", "1.0.0")))

	dup := newFSDefinition("fpd-dup", "elisa_prep", "1.0.0")
	err := facade.Create(ctx, dup)
	require.Error(t, err)
	assert.True(t, IsUniquenessConflict(err))

	// A new version of the same protocol is fine.
	require.NoError(t, facade.Create(ctx, newFSDefinition("fpd-2", "elisa_prep", "1.1.0")))

	got, err := facade.GetByNameAndVersion(ctx, "elisa_prep", "1.1.0")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "fpd-2", got.AccessionID)
}

func TestProtocolDefinitionFacade_ListTopLevel(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup()

	facade := NewProtocolDefinitionFacade().WithDB(helper.DB)
	ctx := helper.CreateTestContext()

	top := newFSDefinition("fpd-1", "elisa_prep", "1.0.0")
	require.NoError(t, facade.Create(ctx, top))

	helperDef := newFSDefinition("fpd-2", "transfer_samples", "1.0.0")
	helperDef.IsTopLevel = false
	require.NoError(t, facade.Create(ctx, helperDef))

	onlyTop := true
	listed, err := facade.List(ctx, &ProtocolDefinitionFilter{IsTopLevel: &onlyTop})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "fpd-1", listed[0].AccessionID)
}
