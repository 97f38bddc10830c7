// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package catalog

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/maraxen/pylabpraxis-sub002/pkg/accession"
	"github.com/maraxen/pylabpraxis-sub002/pkg/database/model"
	praxiserrors "github.com/maraxen/pylabpraxis-sub002/pkg/errors"
	"github.com/maraxen/pylabpraxis-sub002/pkg/logger/log"
)

// SeedManifest is the YAML shape of a catalog seed file. Entries are keyed by
// FQN; re-seeding refreshes existing rows instead of duplicating them.
type SeedManifest struct {
	Machines  []MachineSeed  `yaml:"machines"`
	Resources []ResourceSeed `yaml:"resources"`
	Decks     []DeckSeed     `yaml:"decks"`
	Protocols []ProtocolSeed `yaml:"protocols"`
}

// MachineSeed declares one instrument type.
type MachineSeed struct {
	Name              string                 `yaml:"name"`
	FQN               string                 `yaml:"fqn"`
	Category          string                 `yaml:"category"`
	Description       string                 `yaml:"description"`
	HasDeck           bool                   `yaml:"has_deck"`
	DeckDefinitionFQN string                 `yaml:"deck_definition_fqn"`
	SetupMethod       map[string]interface{} `yaml:"setup_method"`
}

// ResourceSeed declares one labware type.
type ResourceSeed struct {
	Name            string                 `yaml:"name"`
	FQN             string                 `yaml:"fqn"`
	ResourceType    string                 `yaml:"resource_type"`
	PLRCategory     string                 `yaml:"plr_category"`
	Description     string                 `yaml:"description"`
	IsConsumable    bool                   `yaml:"is_consumable"`
	NominalVolumeUL *float64               `yaml:"nominal_volume_ul"`
	Manufacturer    string                 `yaml:"manufacturer"`
	Details         map[string]interface{} `yaml:"details"`
}

// DeckSeed declares one deck layout type with its named positions.
type DeckSeed struct {
	Name        string             `yaml:"name"`
	FQN         string             `yaml:"fqn"`
	Description string             `yaml:"description"`
	Positions   []DeckPositionSeed `yaml:"positions"`
}

// DeckPositionSeed declares one slot of a deck type.
type DeckPositionSeed struct {
	Name          string   `yaml:"name"`
	AcceptsTips   bool     `yaml:"accepts_tips"`
	AcceptsPlates bool     `yaml:"accepts_plates"`
	AcceptsTubes  bool     `yaml:"accepts_tubes"`
	Categories    []string `yaml:"categories"`
}

// ProtocolSeed declares one executable protocol entry sourced from the
// filesystem snapshot the seed file describes.
type ProtocolSeed struct {
	Name           string   `yaml:"name"`
	Version        string   `yaml:"version"`
	FQN            string   `yaml:"fqn"`
	Description    string   `yaml:"description"`
	SourceFilePath string   `yaml:"source_file_path"`
	ModuleName     string   `yaml:"module_name"`
	FunctionName   string   `yaml:"function_name"`
	IsTopLevel     bool     `yaml:"is_top_level"`
	Category       string   `yaml:"category"`
	Tags           []string `yaml:"tags"`
}

// SeedReport counts what a seeding pass touched.
type SeedReport struct {
	Machines  int
	Resources int
	Decks     int
	Protocols int
}

// SeedFromFile loads a manifest and applies it.
func (s *Service) SeedFromFile(ctx context.Context, path string) (*SeedReport, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed manifest %s: %w", path, err)
	}
	var manifest SeedManifest
	if err := yaml.Unmarshal(raw, &manifest); err != nil {
		return nil, fmt.Errorf("parse seed manifest %s: %w", path, err)
	}
	return s.Seed(ctx, &manifest)
}

// Seed upserts every manifest entry. Decks go first so machine entries can
// reference deck types declared in the same manifest.
func (s *Service) Seed(ctx context.Context, manifest *SeedManifest) (*SeedReport, error) {
	report := &SeedReport{}

	for i := range manifest.Decks {
		if err := s.seedDeck(ctx, &manifest.Decks[i]); err != nil {
			return report, err
		}
		report.Decks++
	}
	for i := range manifest.Resources {
		if err := s.seedResource(ctx, &manifest.Resources[i]); err != nil {
			return report, err
		}
		report.Resources++
	}
	for i := range manifest.Machines {
		if err := s.seedMachine(ctx, &manifest.Machines[i]); err != nil {
			return report, err
		}
		report.Machines++
	}
	for i := range manifest.Protocols {
		if err := s.seedProtocol(ctx, &manifest.Protocols[i]); err != nil {
			return report, err
		}
		report.Protocols++
	}

	log.Infof("catalog seeded: %d decks, %d resources, %d machines, %d protocols",
		report.Decks, report.Resources, report.Machines, report.Protocols)
	return report, nil
}

func (s *Service) seedDeck(ctx context.Context, seed *DeckSeed) error {
	if seed.FQN == "" || seed.Name == "" {
		return praxiserrors.NewError().
			WithCode(praxiserrors.CodeInvalidParameter).
			WithMessagef("deck seed requires name and fqn, got name=%q fqn=%q", seed.Name, seed.FQN)
	}
	def := &model.DeckDefinition{
		AccessionID: accession.NewID(),
		Name:        seed.Name,
		FQN:         seed.FQN,
		Description: optString(seed.Description),
	}
	var positions []*model.DeckPositionDefinition
	for _, p := range seed.Positions {
		positions = append(positions, &model.DeckPositionDefinition{
			AccessionID:                accession.NewID(),
			Name:                       p.Name,
			AcceptsTips:                p.AcceptsTips,
			AcceptsPlates:              p.AcceptsPlates,
			AcceptsTubes:               p.AcceptsTubes,
			AcceptedResourceCategories: p.Categories,
		})
	}
	return s.UpsertDeckDefinition(ctx, def, positions)
}

func (s *Service) seedResource(ctx context.Context, seed *ResourceSeed) error {
	if seed.FQN == "" || seed.Name == "" {
		return praxiserrors.NewError().
			WithCode(praxiserrors.CodeInvalidParameter).
			WithMessagef("resource seed requires name and fqn, got name=%q fqn=%q", seed.Name, seed.FQN)
	}
	def := &model.ResourceDefinition{
		AccessionID:          accession.NewID(),
		Name:                 seed.Name,
		FQN:                  seed.FQN,
		ResourceType:         optString(seed.ResourceType),
		PLRCategory:          optString(seed.PLRCategory),
		Description:          optString(seed.Description),
		IsConsumable:         seed.IsConsumable,
		NominalVolumeUL:      seed.NominalVolumeUL,
		Manufacturer:         optString(seed.Manufacturer),
		PLRDefinitionDetails: toJSONBag(seed.Details),
	}
	return s.UpsertResourceDefinition(ctx, def)
}

func (s *Service) seedMachine(ctx context.Context, seed *MachineSeed) error {
	if seed.FQN == "" || seed.Name == "" {
		return praxiserrors.NewError().
			WithCode(praxiserrors.CodeInvalidParameter).
			WithMessagef("machine seed requires name and fqn, got name=%q fqn=%q", seed.Name, seed.FQN)
	}
	def := &model.MachineDefinition{
		AccessionID:     accession.NewID(),
		Name:            seed.Name,
		FQN:             seed.FQN,
		MachineCategory: seed.Category,
		Description:     optString(seed.Description),
		HasDeck:         seed.HasDeck,
		SetupMethod:     toJSONBag(seed.SetupMethod),
	}
	if seed.DeckDefinitionFQN != "" {
		deck, err := s.DeckDefinitionByFQN(ctx, seed.DeckDefinitionFQN)
		if err != nil {
			return err
		}
		if deck == nil {
			return &DefinitionNotFoundError{Kind: "deck", Key: seed.DeckDefinitionFQN}
		}
		def.DeckDefinitionID = &deck.AccessionID
	}
	return s.UpsertMachineDefinition(ctx, def)
}

// seedProtocol upserts by name+version; the filesystem source id is minted on
// first insert and kept stable on refresh.
func (s *Service) seedProtocol(ctx context.Context, seed *ProtocolSeed) error {
	if seed.FQN == "" || seed.Name == "" || seed.Version == "" {
		return praxiserrors.NewError().
			WithCode(praxiserrors.CodeInvalidParameter).
			WithMessagef("protocol seed requires name, version and fqn, got name=%q version=%q fqn=%q",
				seed.Name, seed.Version, seed.FQN)
	}

	existing, err := s.protocols.GetByNameAndVersion(ctx, seed.Name, seed.Version)
	if err != nil {
		return err
	}

	def := &model.FunctionProtocolDefinition{
		Name:           seed.Name,
		Version:        seed.Version,
		FQN:            seed.FQN,
		Description:    optString(seed.Description),
		SourceFilePath: seed.SourceFilePath,
		ModuleName:     seed.ModuleName,
		FunctionName:   seed.FunctionName,
		IsTopLevel:     seed.IsTopLevel,
		Category:       optString(seed.Category),
		Tags:           seed.Tags,
	}
	if existing == nil {
		def.AccessionID = accession.NewID()
		fsSource := accession.NewID()
		def.FileSystemSourceID = &fsSource
		if err := s.protocols.Create(ctx, def); err != nil {
			return err
		}
	} else {
		def.AccessionID = existing.AccessionID
		def.CreatedAt = existing.CreatedAt
		def.FileSystemSourceID = existing.FileSystemSourceID
		def.SourceRepositoryID = existing.SourceRepositoryID
		def.CommitHash = existing.CommitHash
		if err := s.protocols.Update(ctx, def); err != nil {
			return err
		}
	}
	s.evict("protocol_def:fqn:" + seed.FQN)
	return nil
}

func optString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// toJSONBag normalizes yaml.v2 decoding, which produces interface-keyed maps
// for nested mappings, into string-keyed bags that marshal as JSON.
func toJSONBag(m map[string]interface{}) model.JSONBag {
	if m == nil {
		return nil
	}
	out := model.JSONBag{}
	for k, v := range m {
		out[k] = normalizeYAML(v)
	}
	return out
}

func normalizeYAML(v interface{}) interface{} {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		out := map[string]interface{}{}
		for k, val := range t {
			out[fmt.Sprintf("%v", k)] = normalizeYAML(val)
		}
		return out
	case []interface{}:
		for i := range t {
			t[i] = normalizeYAML(t[i])
		}
		return t
	default:
		return v
	}
}
