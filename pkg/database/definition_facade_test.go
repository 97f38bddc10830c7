// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package database

import (
	"testing"

	"github.com/maraxen/pylabpraxis-sub002/pkg/database/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefinitionFacade_ResourceDefinitionLifecycle(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup()

	facade := NewDefinitionFacade().WithDB(helper.DB)
	ctx := helper.CreateTestContext()

	def := &model.ResourceDefinition{
		AccessionID:  "rd-1",
		Name:         "corning_96_wellplate_360ul",
		FQN:          "praxis.resources.plates.Corning96WellPlate360uL",
		PLRCategory:  strPtr("plate"),
		IsConsumable: true,
		PLRDefinitionDetails: model.JSONBag{
			"num_items_x": float64(12),
			"num_items_y": float64(8),
		},
	}
	require.NoError(t, facade.CreateResourceDefinition(ctx, def))

	byFQN, err := facade.GetResourceDefinitionByFQN(ctx, def.FQN)
	require.NoError(t, err)
	require.NotNil(t, byFQN)
	assert.Equal(t, "rd-1", byFQN.AccessionID)

	byName, err := facade.GetResourceDefinitionByName(ctx, def.Name)
	require.NoError(t, err)
	require.NotNil(t, byName)

	missing, err := facade.GetResourceDefinitionByFQN(ctx, "praxis.resources.plates.Nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	plate := "plate"
	listed, err := facade.ListResourceDefinitions(ctx, &ResourceDefinitionFilter{PLRCategory: &plate})
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	require.NoError(t, facade.DeleteResourceDefinition(ctx, "rd-1"))
	gone, err := facade.GetResourceDefinition(ctx, "rd-1")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestDefinitionFacade_UpsertKeepsAccessionID(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup()

	facade := NewDefinitionFacade().WithDB(helper.DB)
	ctx := helper.CreateTestContext()

	first := &model.ResourceDefinition{
		AccessionID: "rd-1",
		Name:        "opentrons_96_tiprack_300ul",
		FQN:         "praxis.resources.tipracks.Opentrons96TipRack300uL",
	}
	require.NoError(t, facade.UpsertResourceDefinitionByFQN(ctx, first))

	refreshed := &model.ResourceDefinition{
		AccessionID:  "rd-new",
		Name:         "opentrons_96_tiprack_300ul",
		FQN:          "praxis.resources.tipracks.Opentrons96TipRack300uL",
		Manufacturer: strPtr("Opentrons"),
	}
	require.NoError(t, facade.UpsertResourceDefinitionByFQN(ctx, refreshed))

	assert.Equal(t, "rd-1", refreshed.AccessionID, "upsert keeps the original accession id")

	got, err := facade.GetResourceDefinitionByFQN(ctx, first.FQN)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "rd-1", got.AccessionID)
	require.NotNil(t, got.Manufacturer)
	assert.Equal(t, "Opentrons", *got.Manufacturer)

	assert.Equal(t, int64(1), helper.Count(model.TableNameResourceDefinition))
}

func TestDefinitionFacade_MachineDefinition(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup()

	facade := NewDefinitionFacade().WithDB(helper.DB)
	ctx := helper.CreateTestContext()

	def := &model.MachineDefinition{
		AccessionID:     "md-1",
		Name:            "ot2",
		FQN:             "praxis.machines.OT2",
		MachineCategory: "liquid_handler",
		HasDeck:         true,
		DeckDefinitionID: strPtr("dd-1"),
	}
	require.NoError(t, facade.CreateMachineDefinition(ctx, def))

	got, err := facade.GetMachineDefinitionByFQN(ctx, "praxis.machines.OT2")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.HasDeck)

	category := "liquid_handler"
	listed, err := facade.ListMachineDefinitions(ctx, &category, 0, 0)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	other := "plate_reader"
	listed, err = facade.ListMachineDefinitions(ctx, &other, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestDefinitionFacade_DeckPositions(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup()

	facade := NewDefinitionFacade().WithDB(helper.DB)
	ctx := helper.CreateTestContext()

	deck := &model.DeckDefinition{
		AccessionID: "dd-1",
		Name:        "ot2_standard_deck",
		FQN:         "praxis.decks.OT2StandardDeck",
	}
	require.NoError(t, facade.CreateDeckDefinition(ctx, deck))

	positions := []*model.DeckPositionDefinition{
		{AccessionID: "dp-1", DeckTypeID: "dd-1", Name: "1", AcceptsPlates: true},
		{AccessionID: "dp-2", DeckTypeID: "dd-1", Name: "2", AcceptsTips: true,
			AcceptedResourceCategories: model.StringList{"tip_rack"}},
	}
	require.NoError(t, facade.CreateDeckPositionDefinitions(ctx, positions))

	// Position names are unique within one deck type.
	err := facade.CreateDeckPositionDefinitions(ctx, []*model.DeckPositionDefinition{
		{AccessionID: "dp-dup", DeckTypeID: "dd-1", Name: "1"},
	})
	require.Error(t, err)
	assert.True(t, IsUniquenessConflict(err))

	// The same name under a different deck type is fine.
	require.NoError(t, facade.CreateDeckPositionDefinitions(ctx, []*model.DeckPositionDefinition{
		{AccessionID: "dp-3", DeckTypeID: "dd-2", Name: "1"},
	}))

	listed, err := facade.ListDeckPositionDefinitions(ctx, "dd-1")
	require.NoError(t, err)
	require.Len(t, listed, 2)

	pos, err := facade.GetDeckPositionDefinition(ctx, "dd-1", "2")
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.True(t, pos.AcceptsTips)
	assert.True(t, pos.AcceptedResourceCategories.Contains("tip_rack"))

	require.NoError(t, facade.DeleteDeckPositionDefinitions(ctx, "dd-1"))
	listed, err = facade.ListDeckPositionDefinitions(ctx, "dd-1")
	require.NoError(t, err)
	assert.Empty(t, listed)
}
