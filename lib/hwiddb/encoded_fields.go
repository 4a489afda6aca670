// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwiddb

import (
	"log/slog"
	"maps"
	"slices"
	"strings"
)

// Combination is what one index of an encoded field represents: for
// each component class, the names of the components present. Names
// form a multiset; their order is kept for export but ignored when
// comparing.
type Combination map[string][]string

// Classes returns the component classes in sorted order.
func (c Combination) Classes() []string {
	return slices.Sorted(maps.Keys(c))
}

// Equal compares two combinations class by class as multisets.
func (c Combination) Equal(other Combination) bool {
	if len(c) != len(other) {
		return false
	}
	for class, names := range c {
		otherNames, ok := other[class]
		if !ok || !sameMultiset(names, otherNames) {
			return false
		}
	}
	return true
}

// String renders the combination for log and error messages.
func (c Combination) String() string {
	var builder strings.Builder
	builder.WriteByte('{')
	for position, class := range c.Classes() {
		if position > 0 {
			builder.WriteString(", ")
		}
		builder.WriteString(class)
		builder.WriteString(": [")
		builder.WriteString(strings.Join(c[class], ", "))
		builder.WriteByte(']')
	}
	builder.WriteByte('}')
	return builder.String()
}

func (c Combination) clone() Combination {
	result := make(Combination, len(c))
	for class, names := range c {
		result[class] = slices.Clone(names)
	}
	return result
}

func sameMultiset(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sortedA := slices.Sorted(slices.Values(a))
	sortedB := slices.Sorted(slices.Values(b))
	return slices.Equal(sortedA, sortedB)
}

// IndexedCombination is one row of an encoded field.
type IndexedCombination struct {
	Index       int
	Combination Combination
}

// encodedField is one field: its shape (sorted component classes,
// fixed by the first combination) and its rows in insertion order.
type encodedField struct {
	classes []string
	indices []int
	rows    map[int]Combination
	region  *regionPayload
}

func (f *encodedField) maxIndex() int {
	return slices.Max(f.indices)
}

func (f *encodedField) clone() *encodedField {
	result := &encodedField{
		classes: slices.Clone(f.classes),
		indices: slices.Clone(f.indices),
		rows:    make(map[int]Combination, len(f.rows)),
		region:  f.region.clone(),
	}
	for index, combination := range f.rows {
		result.rows[index] = combination.clone()
	}
	return result
}

// EncodedFields maps every field name to its index table.
type EncodedFields struct {
	order     []string
	fields    map[string]*encodedField
	canEncode bool
	logger    *slog.Logger
}

// NewEncodedFields returns an empty table set. A nil logger uses
// slog.Default().
func NewEncodedFields(logger *slog.Logger) *EncodedFields {
	if logger == nil {
		logger = slog.Default()
	}
	return &EncodedFields{fields: map[string]*encodedField{}, canEncode: true, logger: logger}
}

// CanEncode is false once a combination has been registered at two
// different indices of one field.
func (e *EncodedFields) CanEncode() bool { return e.canEncode }

// FieldNames returns the field names in insertion order.
func (e *EncodedFields) FieldNames() []string {
	return slices.Clone(e.order)
}

// HasField reports whether name is a defined field.
func (e *EncodedFields) HasField(name string) bool {
	_, ok := e.fields[name]
	return ok
}

// GetField returns the rows of a field in insertion order.
func (e *EncodedFields) GetField(name string) ([]IndexedCombination, error) {
	field, err := e.field(name)
	if err != nil {
		return nil, err
	}
	result := make([]IndexedCombination, 0, len(field.indices))
	for _, index := range field.indices {
		result = append(result, IndexedCombination{Index: index, Combination: field.rows[index].clone()})
	}
	return result, nil
}

// GetCombination returns the combination stored at one index.
func (e *EncodedFields) GetCombination(name string, index int) (Combination, error) {
	field, err := e.field(name)
	if err != nil {
		return nil, err
	}
	combination, ok := field.rows[index]
	if !ok {
		return nil, newError(KindNotFound, "index %d is not defined in encoded field %q", index, name)
	}
	return combination.clone(), nil
}

// FindIndex returns the index of the row equal to combination.
func (e *EncodedFields) FindIndex(name string, combination Combination) (int, error) {
	field, err := e.field(name)
	if err != nil {
		return 0, err
	}
	for _, index := range field.indices {
		if field.rows[index].Equal(combination) {
			return index, nil
		}
	}
	return 0, newError(KindNotFound, "combination %s is not encoded by field %q", combination, name)
}

// MaxIndex returns the highest index used by a field.
func (e *EncodedFields) MaxIndex(name string) (int, error) {
	field, err := e.field(name)
	if err != nil {
		return 0, err
	}
	return field.maxIndex(), nil
}

// GetComponentClasses returns the sorted component classes a field
// encodes.
func (e *EncodedFields) GetComponentClasses(name string) ([]string, error) {
	field, err := e.field(name)
	if err != nil {
		return nil, err
	}
	return slices.Clone(field.classes), nil
}

// GetFieldsForComponent returns every field that encodes class, in
// field order.
func (e *EncodedFields) GetFieldsForComponent(class string) []string {
	var result []string
	for _, name := range e.order {
		if slices.Contains(e.fields[name].classes, class) {
			result = append(result, name)
		}
	}
	return result
}

// GetFieldForComponent returns the single field that encodes class.
// It fails when no field or more than one field does.
func (e *EncodedFields) GetFieldForComponent(class string) (string, error) {
	names := e.GetFieldsForComponent(class)
	switch len(names) {
	case 0:
		return "", newError(KindNotFound, "no encoded field encodes component class %q", class)
	case 1:
		return names[0], nil
	default:
		return "", newError(KindInvariant, "component class %q is encoded by several fields: %s",
			class, strings.Join(names, ", "))
	}
}

// IsRegionField reports whether a field was declared with "!region_field".
func (e *EncodedFields) IsRegionField(name string) bool {
	field, ok := e.fields[name]
	return ok && field.region != nil
}

// AddNewField creates a field whose shape is the set of classes in
// combination, and stores combination at index 0.
func (e *EncodedFields) AddNewField(name string, combination Combination) error {
	if name == "" {
		return newError(KindMalformed, "encoded field name must not be empty")
	}
	if _, exists := e.fields[name]; exists {
		return newError(KindDuplicate, "encoded field %q is already defined", name)
	}
	if len(combination) == 0 {
		return newError(KindMalformed, "encoded field %q must encode at least one component class", name)
	}
	e.fields[name] = &encodedField{classes: combination.Classes(), rows: map[int]Combination{}}
	e.order = append(e.order, name)
	return e.addRow(name, combination, 0)
}

// AddFieldComponents appends combination to an existing field at the
// next free index (one past the current maximum).
func (e *EncodedFields) AddFieldComponents(name string, combination Combination) error {
	field, err := e.field(name)
	if err != nil {
		return err
	}
	return e.AddFieldComponentsAt(name, combination, field.maxIndex()+1)
}

// AddFieldComponentsAt stores combination at an explicit index. The
// index must be unused and the combination must cover exactly the
// field's component classes. A combination already present at another
// index is a soft defect: it is logged and clears CanEncode.
func (e *EncodedFields) AddFieldComponentsAt(name string, combination Combination, index int) error {
	field, err := e.field(name)
	if err != nil {
		return err
	}
	if field.region != nil {
		return newError(KindInvariant, "encoded field %q is generated from the region list", name)
	}
	return e.addRow(name, combination, index)
}

func (e *EncodedFields) addRow(name string, combination Combination, index int) error {
	field := e.fields[name]
	if index < 0 {
		return newError(KindOutOfRange, "index %d of encoded field %q is negative", index, name)
	}
	if _, exists := field.rows[index]; exists {
		return newError(KindDuplicate, "index %d of encoded field %q is already defined", index, name)
	}
	if !slices.Equal(combination.Classes(), field.classes) {
		return newError(KindInvariant,
			"encoded field %q encodes component classes [%s], got [%s]",
			name, strings.Join(field.classes, ", "), strings.Join(combination.Classes(), ", "))
	}
	for _, existing := range field.indices {
		if field.rows[existing].Equal(combination) {
			e.logger.Warn("encoded field combination already exists at another index",
				"field", name, "combination", combination.String(),
				"existing_index", existing, "index", index)
			e.canEncode = false
		}
	}
	field.indices = append(field.indices, index)
	field.rows[index] = combination.clone()
	return nil
}

// RenameComponent rewrites every combination that references component
// oldName of class.
func (e *EncodedFields) RenameComponent(class, oldName, newName string) {
	for _, fieldName := range e.order {
		field := e.fields[fieldName]
		for _, combination := range field.rows {
			names := combination[class]
			for position, name := range names {
				if name == oldName {
					names[position] = newName
				}
			}
		}
	}
}

// loadField creates a field from decoded rows. The first row fixes
// the shape.
func (e *EncodedFields) loadField(name string, rows []IndexedCombination) error {
	if _, exists := e.fields[name]; exists {
		return newError(KindDuplicate, "encoded field %q is already defined", name)
	}
	if len(rows) == 0 || len(rows[0].Combination) == 0 {
		return newError(KindMalformed, "encoded field %q must encode at least one component class", name)
	}
	e.fields[name] = &encodedField{classes: rows[0].Combination.Classes(), rows: map[int]Combination{}}
	e.order = append(e.order, name)
	for _, row := range rows {
		if err := e.addRow(name, row.Combination, row.Index); err != nil {
			return err
		}
	}
	return nil
}

// addRegionField creates a field generated from a region list.
func (e *EncodedFields) addRegionField(name string, codes []string, legacy bool) error {
	if _, exists := e.fields[name]; exists {
		return newError(KindDuplicate, "encoded field %q is already defined", name)
	}
	field := &encodedField{
		classes: []string{RegionClass},
		rows:    map[int]Combination{},
		region:  newRegionPayload(codes, legacy),
	}
	for _, row := range regionFieldCombinations(codes) {
		field.indices = append(field.indices, row.Index)
		field.rows[row.Index] = row.Combination
	}
	e.fields[name] = field
	e.order = append(e.order, name)
	return nil
}

func (e *EncodedFields) regionPayload(name string) *regionPayload {
	field, ok := e.fields[name]
	if !ok {
		return nil
	}
	return field.region
}

func (e *EncodedFields) field(name string) (*encodedField, error) {
	field, ok := e.fields[name]
	if !ok {
		return nil, newError(KindNotFound, "encoded field %q is not defined", name)
	}
	return field, nil
}

func (e *EncodedFields) clone() *EncodedFields {
	result := &EncodedFields{
		order:     slices.Clone(e.order),
		fields:    make(map[string]*encodedField, len(e.fields)),
		canEncode: e.canEncode,
		logger:    e.logger,
	}
	for name, field := range e.fields {
		result.fields[name] = field.clone()
	}
	return result
}
