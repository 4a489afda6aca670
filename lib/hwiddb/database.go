// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwiddb

import (
	"log/slog"
	"math/bits"
	"slices"
	"strings"
)

// Database is a read-only HWID database. It exposes no mutation
// methods; use [WritableDatabase] to edit a document.
type Database struct {
	project          string
	checksum         string
	frameworkVersion int

	encodingPatterns *EncodingPatterns
	imageID          *ImageID
	pattern          *Pattern
	encodedFields    *EncodedFields
	components       *Components
	rules            *Rules

	logger *slog.Logger
}

func newEmptyDatabase(project string, logger *slog.Logger) Database {
	if logger == nil {
		logger = slog.Default()
	}
	rules, _ := NewRules(nil)
	return Database{
		project:          project,
		encodingPatterns: NewEncodingPatterns(),
		imageID:          NewImageID(),
		pattern:          NewPattern(),
		encodedFields:    NewEncodedFields(logger),
		components:       NewComponents(logger),
		rules:            rules,
		logger:           logger,
	}
}

// Project returns the upper-case project name.
func (d *Database) Project() string { return d.project }

// Checksum returns the checksum stored in the document the database
// was loaded from, or "" for a database built in memory.
func (d *Database) Checksum() string { return d.checksum }

// FrameworkVersion returns the document's framework version.
func (d *Database) FrameworkVersion() int { return d.frameworkVersion }

// CanEncode reports whether the database may be used to mint new
// identifiers. It is false once historically tolerated ambiguity has
// been found.
func (d *Database) CanEncode() bool {
	return d.components.CanEncode() && d.encodedFields.CanEncode()
}

// EncodingPatterns returns the encoding pattern names by key.
func (d *Database) EncodingPatterns() map[int]string {
	return d.encodingPatterns.Entries()
}

// ImageIDs returns every image id in ascending order.
func (d *Database) ImageIDs() []int { return d.imageID.Keys() }

// MaxImageID returns the largest non-RMA image id.
func (d *Database) MaxImageID() (int, bool) { return d.imageID.MaxImageID() }

// RMAImageID returns the reserved RMA image id if it is defined.
func (d *Database) RMAImageID() (int, bool) { return d.imageID.RMAImageID() }

// GetImageName returns the name of an image id.
func (d *Database) GetImageName(imageID int) (string, error) { return d.imageID.Get(imageID) }

// GetImageIDByName returns the image id with the given name.
func (d *Database) GetImageIDByName(name string) (int, error) {
	return d.imageID.GetImageIDByName(name)
}

// Patterns returns a copy of every pattern.
func (d *Database) Patterns() []PatternRecord { return d.pattern.Records() }

// GetPatternIndex resolves a selector to a pattern position.
func (d *Database) GetPatternIndex(selector Selector) (int, error) {
	return d.pattern.PatternIndex(selector)
}

// GetEncodingScheme returns the encoding scheme of the selected pattern.
func (d *Database) GetEncodingScheme(selector Selector) (EncodingScheme, error) {
	return d.pattern.GetEncodingScheme(selector)
}

// GetTotalBitLength returns the component bit length of the selected
// pattern.
func (d *Database) GetTotalBitLength(selector Selector) (int, error) {
	return d.pattern.GetTotalBitLength(selector)
}

// GetEncodedFieldsBitLength returns the bits allocated per field by the
// selected pattern.
func (d *Database) GetEncodedFieldsBitLength(selector Selector) (map[string]int, error) {
	return d.pattern.GetFieldsBitLength(selector)
}

// GetPatternFieldNames returns the fields of the selected pattern in
// order of first appearance.
func (d *Database) GetPatternFieldNames(selector Selector) ([]string, error) {
	return d.pattern.GetFieldNames(selector)
}

// GetBitMapping returns the bit mapping of the selected pattern.
func (d *Database) GetBitMapping(selector Selector) ([]BitEntry, error) {
	return d.pattern.GetBitMapping(selector)
}

// GetBitMappingTruncated returns the bit mapping limited to
// maxBitLength bits; see [Pattern.GetBitMappingTruncated].
func (d *Database) GetBitMappingTruncated(selector Selector, maxBitLength int) ([]BitEntry, error) {
	return d.pattern.GetBitMappingTruncated(selector, maxBitLength)
}

// EncodedFieldNames returns every encoded field in document order.
func (d *Database) EncodedFieldNames() []string { return d.encodedFields.FieldNames() }

// GetEncodedField returns the rows of an encoded field.
func (d *Database) GetEncodedField(name string) ([]IndexedCombination, error) {
	return d.encodedFields.GetField(name)
}

// GetEncodedFieldCombination returns the combination at one index.
func (d *Database) GetEncodedFieldCombination(name string, index int) (Combination, error) {
	return d.encodedFields.GetCombination(name, index)
}

// FindEncodedFieldIndex returns the index of combination in a field.
func (d *Database) FindEncodedFieldIndex(name string, combination Combination) (int, error) {
	return d.encodedFields.FindIndex(name, combination)
}

// GetComponentClassesOfField returns the component classes a field
// encodes.
func (d *Database) GetComponentClassesOfField(name string) ([]string, error) {
	return d.encodedFields.GetComponentClasses(name)
}

// GetEncodedFieldForComponent returns the single field encoding class.
func (d *Database) GetEncodedFieldForComponent(class string) (string, error) {
	return d.encodedFields.GetFieldForComponent(class)
}

// GetEncodedFieldsForComponent returns every field encoding class.
func (d *Database) GetEncodedFieldsForComponent(class string) []string {
	return d.encodedFields.GetFieldsForComponent(class)
}

// IsRegionField reports whether a field is generated from the region
// list.
func (d *Database) IsRegionField(name string) bool { return d.encodedFields.IsRegionField(name) }

// ComponentClasses returns every component class in document order.
func (d *Database) ComponentClasses() []string { return d.components.ComponentClasses() }

// GetComponents returns the components of a class in document order.
func (d *Database) GetComponents(class string) []NamedComponent {
	return d.components.GetComponents(class)
}

// GetComponent returns one component.
func (d *Database) GetComponent(class, name string) (ComponentInfo, error) {
	return d.components.GetComponent(class, name)
}

// GetDefaultComponent returns the default component of a class.
func (d *Database) GetDefaultComponent(class string) (string, bool) {
	return d.components.GetDefaultComponent(class)
}

// GetComponentNameByHash looks a component up by content hash.
func (d *Database) GetComponentNameByHash(class, hash string) (string, bool) {
	return d.components.GetComponentNameByHash(class, hash)
}

// IsProbeable reports whether components of class are probed.
func (d *Database) IsProbeable(class string) bool { return d.components.IsProbeable(class) }

// Rules returns a copy of the rule list.
func (d *Database) Rules() []Rule { return d.rules.Rules() }

// SanityChecks validates the invariants that span entities:
//
//  1. the image ids equal the image ids bound in the pattern list;
//  2. every field named by a pattern chunk is a defined encoded field;
//  3. the pattern of the maximum image id gives every encoded field
//     enough bits for its highest index;
//  4. every component referenced by an encoded field exists;
//  5. a pattern without chunks is only allowed as the sole pattern,
//     bound only to image id 0.
func (d *Database) SanityChecks() error {
	imageIDs := d.imageID.Keys()
	boundIDs := d.pattern.ImageIDs()
	if !slices.Equal(imageIDs, boundIDs) {
		return newError(KindInvariant, "image ids %v do not match the image ids covered by patterns %v", imageIDs, boundIDs)
	}

	records := d.pattern.Records()
	for _, record := range records {
		for _, chunk := range record.Fields {
			if !d.encodedFields.HasField(chunk.Name) {
				return newError(KindNotFound, "pattern %d allocates bits to %q which is not an encoded field",
					record.Index, chunk.Name)
			}
		}
		if len(record.Fields) == 0 {
			if len(records) != 1 || !slices.Equal(record.ImageIDs, []int{0}) {
				return newError(KindInvariant,
					"pattern %d has no fields; only a sole pattern bound only to image id 0 may be empty", record.Index)
			}
		}
	}

	if _, ok := d.imageID.MaxImageID(); ok {
		bitLengths, err := d.pattern.GetFieldsBitLength(Selector{})
		if err != nil {
			return err
		}
		for _, name := range d.encodedFields.FieldNames() {
			maxIndex, _ := d.encodedFields.MaxIndex(name)
			required := bits.Len(uint(maxIndex))
			if required > bitLengths[name] {
				return newError(KindInvariant,
					"encoded field %q needs %d bits for index %d but the latest pattern allocates %d",
					name, required, maxIndex, bitLengths[name])
			}
		}
	}

	for _, name := range d.encodedFields.FieldNames() {
		rows, _ := d.encodedFields.GetField(name)
		for _, row := range rows {
			for class, names := range row.Combination {
				for _, component := range names {
					if !d.components.HasComponent(class, component) {
						return newError(KindNotFound,
							"encoded field %q index %d references component %q of class %q which is not defined",
							name, row.Index, component, class)
					}
				}
			}
		}
	}
	return nil
}

// Clone returns an independent deep copy.
func (d *Database) Clone() *Database {
	clone := d.clone()
	return &clone
}

func (d *Database) clone() Database {
	return Database{
		project:          d.project,
		checksum:         d.checksum,
		frameworkVersion: d.frameworkVersion,
		encodingPatterns: d.encodingPatterns.clone(),
		imageID:          d.imageID.clone(),
		pattern:          d.pattern.clone(),
		encodedFields:    d.encodedFields.clone(),
		components:       d.components.clone(),
		rules:            d.rules.clone(),
		logger:           d.logger,
	}
}

// normalizeProject upper-cases a project name, warning when the
// source was not already upper case.
func normalizeProject(project string, logger *slog.Logger) string {
	upper := strings.ToUpper(project)
	if upper != project {
		logger.Warn("project name should be upper case", "project", project)
	}
	return upper
}
