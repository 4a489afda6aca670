// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwiddb

import (
	"log/slog"
	"maps"
	"slices"
)

// WritableDatabase is a [Database] that exposes the mutation API. Each
// method is one document edit. Mutations are not transactional: a
// failing call leaves earlier calls applied. Clone before a batch to
// get all-or-nothing behavior.
//
// A WritableDatabase must not be used from more than one goroutine at
// a time.
type WritableDatabase struct {
	Database
}

// NewWritableDatabase returns an empty database for a new product.
// The project name is upper-cased.
func NewWritableDatabase(project string, logger *slog.Logger) *WritableDatabase {
	db := newEmptyDatabase("", logger)
	db.project = normalizeProject(project, db.logger)
	return &WritableDatabase{Database: db}
}

// Clone returns an independent deep copy.
func (w *WritableDatabase) Clone() *WritableDatabase {
	return &WritableDatabase{Database: w.Database.clone()}
}

// ReadOnly returns a read-only deep copy.
func (w *WritableDatabase) ReadOnly() *Database {
	return w.Database.Clone()
}

// ImageOptions selects the pattern of a new image in
// [WritableDatabase.AddImage].
type ImageOptions struct {
	// NewPattern creates an empty pattern for the image.
	NewPattern bool
	// Reference names the existing pattern to share, through an image
	// id or a pattern index. The zero Selector means the pattern of
	// the current maximum image id. Ignored when NewPattern is set.
	Reference Selector
}

// AddImage defines a new image id called name and binds it to a
// pattern. When the image shares an existing pattern, scheme must
// match that pattern's encoding scheme.
func (w *WritableDatabase) AddImage(imageID int, name string, scheme EncodingScheme, options ImageOptions) error {
	if err := w.imageID.check(imageID, name); err != nil {
		return err
	}
	if options.NewPattern {
		if err := w.pattern.AddEmptyPattern(imageID, scheme); err != nil {
			return err
		}
	} else {
		reference := options.Reference
		if reference.IsLatest() {
			latest, ok := w.imageID.MaxImageID()
			if !ok {
				return newError(KindNotFound, "image %d has no reference pattern: no image id is defined yet", imageID)
			}
			reference = ByImageID(latest)
		}
		existing, err := w.pattern.GetEncodingScheme(reference)
		if err != nil {
			return err
		}
		if existing != scheme {
			return newError(KindInvariant, "image %d uses encoding scheme %s but %s uses %s",
				imageID, scheme, reference, existing)
		}
		if err := w.pattern.AddImageID(imageID, reference); err != nil {
			return err
		}
	}
	return w.imageID.Set(imageID, name)
}

// AppendEncodedFieldBit allocates bitLength more bits to an existing
// encoded field in the selected pattern.
func (w *WritableDatabase) AppendEncodedFieldBit(field string, bitLength int, selector Selector) error {
	if !w.encodedFields.HasField(field) {
		return newError(KindNotFound, "encoded field %q is not defined", field)
	}
	return w.pattern.AppendField(field, bitLength, selector)
}

// AddNewEncodedField creates a field whose index 0 encodes combination.
// Every referenced component must exist.
func (w *WritableDatabase) AddNewEncodedField(field string, combination Combination) error {
	if err := w.checkComponentsExist(combination); err != nil {
		return err
	}
	return w.encodedFields.AddNewField(field, combination)
}

// AddEncodedFieldComponents appends combination to a field at the
// next free index.
func (w *WritableDatabase) AddEncodedFieldComponents(field string, combination Combination) error {
	if err := w.checkComponentsExist(combination); err != nil {
		return err
	}
	return w.encodedFields.AddFieldComponents(field, combination)
}

// AddEncodedFieldComponentsAt stores combination at an explicit index.
func (w *WritableDatabase) AddEncodedFieldComponentsAt(field string, combination Combination, index int) error {
	if err := w.checkComponentsExist(combination); err != nil {
		return err
	}
	return w.encodedFields.AddFieldComponentsAt(field, combination, index)
}

func (w *WritableDatabase) checkComponentsExist(combination Combination) error {
	for _, class := range combination.Classes() {
		for _, name := range combination[class] {
			if !w.components.HasComponent(class, name) {
				return newError(KindNotFound, "component %q is not defined in class %q", name, class)
			}
		}
	}
	return nil
}

// AddComponent defines a new component. A nil values makes it the
// default component of its class.
func (w *WritableDatabase) AddComponent(class, name string, values Values, status Status, information map[string]string) error {
	info, err := NewComponentInfo(values, status, information, nil)
	if err != nil {
		return err
	}
	return w.components.AddComponent(class, name, info)
}

// SetComponentStatus replaces the status of a component.
func (w *WritableDatabase) SetComponentStatus(class, name string, status Status) error {
	return w.components.SetComponentStatus(class, name, status)
}

// SetLinkAVLProbeValue links the probe values of a component to an
// external catalog entry.
func (w *WritableDatabase) SetLinkAVLProbeValue(class, name, converter string, matched bool) error {
	return w.components.SetLinkAVLProbeValue(class, name, converter, matched)
}

// SetBundleUUIDs replaces the provenance bundle UUIDs of a component.
func (w *WritableDatabase) SetBundleUUIDs(class, name string, bundleUUIDs []string) error {
	return w.components.SetBundleUUIDs(class, name, bundleUUIDs)
}

// ComponentUpdate is the replacement content for
// [WritableDatabase.UpdateComponent].
type ComponentUpdate struct {
	Values      Values
	Status      Status
	Information map[string]string
	BundleUUIDs []string
}

// UpdateComponent renames oldName to newName, replaces its content and
// rewrites every encoded field combination that referenced oldName.
func (w *WritableDatabase) UpdateComponent(class, oldName, newName string, update ComponentUpdate) error {
	info, err := NewComponentInfo(update.Values, update.Status, update.Information, update.BundleUUIDs)
	if err != nil {
		return err
	}
	if err := w.components.UpdateComponent(class, oldName, newName, info); err != nil {
		return err
	}
	if oldName != newName {
		w.encodedFields.RenameComponent(class, oldName, newName)
	}
	return nil
}

// AddDeviceInfoRule inserts a device_info rule; see
// [Rules.AddDeviceInfoRule].
func (w *WritableDatabase) AddDeviceInfoRule(suffix string, evaluate Expressions, options RuleOptions) error {
	return w.rules.AddDeviceInfoRule(suffix, evaluate, options)
}

// ReplaceRules swaps the whole rule list.
func (w *WritableDatabase) ReplaceRules(rules []Rule) error {
	return w.rules.Replace(rules)
}

// RenameImages renames existing image ids. Every key of names must
// already be defined; image ids not listed keep their names. Names
// stay unique across the result. Nothing changes on failure.
func (w *WritableDatabase) RenameImages(names map[int]string) error {
	for _, imageID := range slices.Sorted(maps.Keys(names)) {
		if !w.imageID.Has(imageID) {
			return newError(KindNotFound, "image id %d is not defined", imageID)
		}
	}
	renamed := NewImageID()
	for _, imageID := range w.imageID.Keys() {
		name, ok := names[imageID]
		if !ok {
			name, _ = w.imageID.Get(imageID)
		}
		if err := renamed.Set(imageID, name); err != nil {
			return err
		}
	}
	w.imageID = renamed
	return nil
}

// SetFrameworkVersion raises the framework version. It never lowers it.
func (w *WritableDatabase) SetFrameworkVersion(version int) error {
	if version < w.frameworkVersion {
		return newError(KindInvariant, "framework version cannot decrease from %d to %d", w.frameworkVersion, version)
	}
	w.frameworkVersion = version
	return nil
}
