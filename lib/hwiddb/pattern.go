// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwiddb

import (
	"fmt"
	"maps"
	"slices"
)

// EncodingScheme names how the bit string of an image is rendered into
// HWID text.
type EncodingScheme string

const (
	SchemeBase32   EncodingScheme = "base32"
	SchemeBase8192 EncodingScheme = "base8192"
)

// ParseEncodingScheme validates a scheme name.
func ParseEncodingScheme(name string) (EncodingScheme, error) {
	switch scheme := EncodingScheme(name); scheme {
	case SchemeBase32, SchemeBase8192:
		return scheme, nil
	default:
		return "", newError(KindMalformed, "unknown encoding scheme %q", name)
	}
}

type selectorKind uint8

const (
	selectLatest selectorKind = iota
	selectImageID
	selectPatternIndex
)

// Selector chooses a pattern either through an image id bound to it or
// by its position. The zero Selector chooses the pattern of the
// maximum (non-RMA) image id.
type Selector struct {
	kind  selectorKind
	value int
}

// ByImageID selects the pattern bound to an image id.
func ByImageID(imageID int) Selector {
	return Selector{kind: selectImageID, value: imageID}
}

// ByPatternIndex selects a pattern by its position.
func ByPatternIndex(index int) Selector {
	return Selector{kind: selectPatternIndex, value: index}
}

// IsLatest reports whether s is the zero Selector.
func (s Selector) IsLatest() bool { return s.kind == selectLatest }

func (s Selector) String() string {
	switch s.kind {
	case selectImageID:
		return fmt.Sprintf("image id %d", s.value)
	case selectPatternIndex:
		return fmt.Sprintf("pattern %d", s.value)
	default:
		return "latest pattern"
	}
}

// FieldChunk allocates BitLength bits of the bit string to a field.
type FieldChunk struct {
	Name      string
	BitLength int
}

// PatternRecord is a read-only view of one pattern.
type PatternRecord struct {
	Index    int
	ImageIDs []int
	Scheme   EncodingScheme
	Fields   []FieldChunk
}

// BitEntry says which bit of which field one position of the bit
// string carries.
type BitEntry struct {
	Field  string
	Offset int
}

type patternRecord struct {
	scheme EncodingScheme
	fields []FieldChunk
}

func (p *patternRecord) totalBitLength() int {
	total := 0
	for _, chunk := range p.fields {
		total += chunk.BitLength
	}
	return total
}

// Pattern is the ordered list of bit layouts and the binding of image
// ids to them. Several image ids may share one layout.
type Pattern struct {
	records        []*patternRecord
	imageToPattern map[int]int
}

// NewPattern returns a Pattern with no layouts.
func NewPattern() *Pattern {
	return &Pattern{imageToPattern: map[int]int{}}
}

// Len returns the number of patterns.
func (p *Pattern) Len() int { return len(p.records) }

// ImageIDs returns every bound image id in ascending order.
func (p *Pattern) ImageIDs() []int {
	return slices.Sorted(maps.Keys(p.imageToPattern))
}

// Records returns a copy of every pattern in order.
func (p *Pattern) Records() []PatternRecord {
	result := make([]PatternRecord, 0, len(p.records))
	for index, record := range p.records {
		result = append(result, PatternRecord{
			Index:    index,
			ImageIDs: p.imageIDsOf(index),
			Scheme:   record.scheme,
			Fields:   slices.Clone(record.fields),
		})
	}
	return result
}

// PatternIndex resolves a selector to a pattern position.
func (p *Pattern) PatternIndex(selector Selector) (int, error) {
	switch selector.kind {
	case selectImageID:
		index, ok := p.imageToPattern[selector.value]
		if !ok {
			return 0, newError(KindNotFound, "image id %d is not bound to a pattern", selector.value)
		}
		return index, nil
	case selectPatternIndex:
		if selector.value < 0 || selector.value >= len(p.records) {
			return 0, newError(KindNotFound, "pattern %d is not defined", selector.value)
		}
		return selector.value, nil
	default:
		latest, ok := p.latestImageID()
		if !ok {
			return 0, newError(KindNotFound, "no image id is bound to a pattern")
		}
		return p.imageToPattern[latest], nil
	}
}

func (p *Pattern) resolve(selector Selector) (*patternRecord, error) {
	index, err := p.PatternIndex(selector)
	if err != nil {
		return nil, err
	}
	return p.records[index], nil
}

func (p *Pattern) latestImageID() (int, bool) {
	result, found := 0, false
	for imageID := range p.imageToPattern {
		if imageID != ReservedRMAImageID && (!found || imageID > result) {
			result, found = imageID, true
		}
	}
	return result, found
}

func (p *Pattern) imageIDsOf(index int) []int {
	var result []int
	for imageID, patternIndex := range p.imageToPattern {
		if patternIndex == index {
			result = append(result, imageID)
		}
	}
	slices.Sort(result)
	return result
}

// GetEncodingScheme returns the encoding scheme of the selected pattern.
func (p *Pattern) GetEncodingScheme(selector Selector) (EncodingScheme, error) {
	record, err := p.resolve(selector)
	if err != nil {
		return "", err
	}
	return record.scheme, nil
}

// GetFieldsBitLength sums the chunks of the selected pattern per field.
func (p *Pattern) GetFieldsBitLength(selector Selector) (map[string]int, error) {
	record, err := p.resolve(selector)
	if err != nil {
		return nil, err
	}
	result := map[string]int{}
	for _, chunk := range record.fields {
		result[chunk.Name] += chunk.BitLength
	}
	return result, nil
}

// GetFieldNames returns the fields of the selected pattern in order of
// first appearance.
func (p *Pattern) GetFieldNames(selector Selector) ([]string, error) {
	record, err := p.resolve(selector)
	if err != nil {
		return nil, err
	}
	var result []string
	for _, chunk := range record.fields {
		if !slices.Contains(result, chunk.Name) {
			result = append(result, chunk.Name)
		}
	}
	return result, nil
}

// GetTotalBitLength sums every chunk of the selected pattern.
func (p *Pattern) GetTotalBitLength(selector Selector) (int, error) {
	record, err := p.resolve(selector)
	if err != nil {
		return 0, err
	}
	return record.totalBitLength(), nil
}

// GetBitMapping returns one [BitEntry] per bit of the selected
// pattern. Chunks are walked in declaration order and each chunk emits
// its bits most significant first; a field's offsets continue where
// its previous chunk stopped.
func (p *Pattern) GetBitMapping(selector Selector) ([]BitEntry, error) {
	record, err := p.resolve(selector)
	if err != nil {
		return nil, err
	}
	return bitMapping(record, record.totalBitLength()), nil
}

// GetBitMappingTruncated is GetBitMapping limited to the first
// maxBitLength bits. The chunk crossing the limit is treated as a chunk
// of only the remaining width and later chunks are dropped. Some
// products widened their last chunk in place instead of appending a
// new one; bit strings minted before the widening decode correctly only
// with this behavior.
func (p *Pattern) GetBitMappingTruncated(selector Selector, maxBitLength int) ([]BitEntry, error) {
	if maxBitLength < 0 {
		return nil, newError(KindOutOfRange, "maximum bit length %d is negative", maxBitLength)
	}
	record, err := p.resolve(selector)
	if err != nil {
		return nil, err
	}
	return bitMapping(record, min(maxBitLength, record.totalBitLength())), nil
}

func bitMapping(record *patternRecord, limit int) []BitEntry {
	mapping := make([]BitEntry, 0, limit)
	running := map[string]int{}
	for _, chunk := range record.fields {
		if len(mapping) >= limit {
			break
		}
		emitted := min(chunk.BitLength, limit-len(mapping))
		base := running[chunk.Name]
		for offset := base + emitted - 1; offset >= base; offset-- {
			mapping = append(mapping, BitEntry{Field: chunk.Name, Offset: offset})
		}
		running[chunk.Name] += emitted
	}
	return mapping
}

// AddEmptyPattern creates a pattern with no chunks and binds imageID
// to it.
func (p *Pattern) AddEmptyPattern(imageID int, scheme EncodingScheme) error {
	if err := p.checkUnbound(imageID); err != nil {
		return err
	}
	if _, err := ParseEncodingScheme(string(scheme)); err != nil {
		return err
	}
	p.records = append(p.records, &patternRecord{scheme: scheme})
	p.imageToPattern[imageID] = len(p.records) - 1
	return nil
}

// AddImageID binds imageID to an existing pattern. The selector must
// name the pattern explicitly, through a reference image id or a
// pattern index.
func (p *Pattern) AddImageID(imageID int, selector Selector) error {
	if selector.IsLatest() {
		return newError(KindMalformed, "exactly one of reference image id or pattern index must be given")
	}
	if err := p.checkUnbound(imageID); err != nil {
		return err
	}
	index, err := p.PatternIndex(selector)
	if err != nil {
		return err
	}
	p.imageToPattern[imageID] = index
	return nil
}

// AppendField appends one chunk to the selected pattern. It does not
// check that name is a defined encoded field; [WritableDatabase]
// does.
func (p *Pattern) AppendField(name string, bitLength int, selector Selector) error {
	if name == "" {
		return newError(KindMalformed, "field name must not be empty")
	}
	if bitLength <= 0 {
		return newError(KindOutOfRange, "bit length of field %q must be positive, got %d", name, bitLength)
	}
	record, err := p.resolve(selector)
	if err != nil {
		return err
	}
	record.fields = append(record.fields, FieldChunk{Name: name, BitLength: bitLength})
	return nil
}

func (p *Pattern) checkUnbound(imageID int) error {
	if imageID < 0 || imageID > MaxImageIDValue {
		return newError(KindOutOfRange, "image id %d is out of range [0, %d]", imageID, MaxImageIDValue)
	}
	if index, ok := p.imageToPattern[imageID]; ok {
		return newError(KindDuplicate, "image id %d is already bound to pattern %d", imageID, index)
	}
	return nil
}

func (p *Pattern) clone() *Pattern {
	result := &Pattern{
		records:        make([]*patternRecord, 0, len(p.records)),
		imageToPattern: maps.Clone(p.imageToPattern),
	}
	for _, record := range p.records {
		result.records = append(result.records, &patternRecord{
			scheme: record.scheme,
			fields: slices.Clone(record.fields),
		})
	}
	return result
}
