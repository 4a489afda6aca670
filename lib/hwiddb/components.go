// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwiddb

import (
	"log/slog"
	"maps"
	"slices"
)

// NamedComponent pairs a component name with its info.
type NamedComponent struct {
	Name string
	Info ComponentInfo
}

// componentClass holds the components of one class. names preserves
// insertion order; byHash is the reverse content-hash index. Every
// entry of items has exactly one occurrence in byHash; the invariant
// is maintained only by insert, replace and remove.
type componentClass struct {
	names  []string
	items  map[string]ComponentInfo
	byHash map[string][]string

	probeable bool
	// explicitDefault records components written with "default: true"
	// so the marker survives a load/save cycle.
	explicitDefault map[string]bool
	region          *regionPayload
}

func newComponentClass() *componentClass {
	return &componentClass{
		items:           map[string]ComponentInfo{},
		byHash:          map[string][]string{},
		probeable:       true,
		explicitDefault: map[string]bool{},
	}
}

func (c *componentClass) insert(name string, info ComponentInfo) {
	c.names = append(c.names, name)
	c.items[name] = info
	c.byHash[info.Hash()] = append(c.byHash[info.Hash()], name)
}

func (c *componentClass) remove(name string) {
	info := c.items[name]
	delete(c.items, name)
	c.names = slices.DeleteFunc(c.names, func(existing string) bool { return existing == name })
	c.unindex(info.Hash(), name)
	delete(c.explicitDefault, name)
}

// replace swaps the entry called oldName for newName/info, keeping its
// position in the insertion order.
func (c *componentClass) replace(oldName, newName string, info ComponentInfo) {
	old := c.items[oldName]
	c.unindex(old.Hash(), oldName)
	delete(c.items, oldName)
	position := slices.Index(c.names, oldName)
	c.names[position] = newName
	c.items[newName] = info
	c.indexAt(info.Hash(), newName)
	if c.explicitDefault[oldName] {
		delete(c.explicitDefault, oldName)
		if info.IsDefault() {
			c.explicitDefault[newName] = true
		}
	}
}

// indexAt adds name to the hash index, keeping each hash's names in
// insertion order.
func (c *componentClass) indexAt(hash, name string) {
	names := append(c.byHash[hash], name)
	slices.SortFunc(names, func(a, b string) int {
		return slices.Index(c.names, a) - slices.Index(c.names, b)
	})
	c.byHash[hash] = names
}

func (c *componentClass) unindex(hash, name string) {
	remaining := slices.DeleteFunc(c.byHash[hash], func(existing string) bool { return existing == name })
	if len(remaining) == 0 {
		delete(c.byHash, hash)
		return
	}
	c.byHash[hash] = remaining
}

func (c *componentClass) defaultName() (string, bool) {
	for _, name := range c.names {
		if c.items[name].IsDefault() {
			return name, true
		}
	}
	return "", false
}

func (c *componentClass) clone() *componentClass {
	result := &componentClass{
		names:           slices.Clone(c.names),
		items:           maps.Clone(c.items),
		byHash:          make(map[string][]string, len(c.byHash)),
		probeable:       c.probeable,
		explicitDefault: maps.Clone(c.explicitDefault),
		region:          c.region.clone(),
	}
	for hash, names := range c.byHash {
		result.byHash[hash] = slices.Clone(names)
	}
	return result
}

// Components is the per-class registry of named components.
type Components struct {
	order     []string
	classes   map[string]*componentClass
	canEncode bool
	logger    *slog.Logger
}

// NewComponents returns an empty registry. A nil logger uses
// slog.Default().
func NewComponents(logger *slog.Logger) *Components {
	if logger == nil {
		logger = slog.Default()
	}
	return &Components{classes: map[string]*componentClass{}, canEncode: true, logger: logger}
}

// CanEncode is false once a soft defect (duplicate probe values or a
// second default component in one class) has been recorded.
func (c *Components) CanEncode() bool { return c.canEncode }

// ComponentClasses returns the classes in insertion order.
func (c *Components) ComponentClasses() []string {
	return slices.Clone(c.order)
}

// HasClass reports whether class has been declared.
func (c *Components) HasClass(class string) bool {
	_, ok := c.classes[class]
	return ok
}

// GetComponents returns the components of class in insertion order,
// or nil for an unknown class.
func (c *Components) GetComponents(class string) []NamedComponent {
	entry, ok := c.classes[class]
	if !ok {
		return nil
	}
	result := make([]NamedComponent, 0, len(entry.names))
	for _, name := range entry.names {
		result = append(result, NamedComponent{Name: name, Info: entry.items[name]})
	}
	return result
}

// GetComponent returns one component.
func (c *Components) GetComponent(class, name string) (ComponentInfo, error) {
	entry, ok := c.classes[class]
	if !ok {
		return ComponentInfo{}, newError(KindNotFound, "component class %q is not defined", class)
	}
	info, ok := entry.items[name]
	if !ok {
		return ComponentInfo{}, newError(KindNotFound, "component %q is not defined in class %q", name, class)
	}
	return info, nil
}

// HasComponent reports whether name exists in class.
func (c *Components) HasComponent(class, name string) bool {
	_, err := c.GetComponent(class, name)
	return err == nil
}

// GetDefaultComponent returns the name of the default component of
// class (the one whose values are [NoneValues]), if any.
func (c *Components) GetDefaultComponent(class string) (string, bool) {
	entry, ok := c.classes[class]
	if !ok {
		return "", false
	}
	return entry.defaultName()
}

// GetComponentNameByHash returns the component of class with the given
// content hash. When several components share content, the first
// inserted one is returned.
func (c *Components) GetComponentNameByHash(class, hash string) (string, bool) {
	entry, ok := c.classes[class]
	if !ok {
		return "", false
	}
	names := entry.byHash[hash]
	if len(names) == 0 {
		return "", false
	}
	return names[0], true
}

// IsProbeable reports whether components of class are identified by
// probing. Unknown classes are probeable.
func (c *Components) IsProbeable(class string) bool {
	entry, ok := c.classes[class]
	return !ok || entry.probeable
}

// IsRegionClass reports whether class is generated from a region list.
func (c *Components) IsRegionClass(class string) bool {
	entry, ok := c.classes[class]
	return ok && entry.region != nil
}

// AddComponent inserts a new component. The name must not exist in the
// class yet. Repeated probe values and a second default component are
// soft defects: they are logged and clear CanEncode.
func (c *Components) AddComponent(class, name string, info ComponentInfo) error {
	if class == "" || name == "" {
		return newError(KindMalformed, "component class and name must not be empty")
	}
	entry := c.classes[class]
	if entry != nil {
		if entry.region != nil {
			return newError(KindInvariant, "component class %q is generated from the region list", class)
		}
		if _, exists := entry.items[name]; exists {
			return newError(KindDuplicate, "component %q is already defined in class %q", name, class)
		}
	}
	c.checkSoftDefects(class, name, info, entry)
	if entry == nil {
		entry = c.ensureClass(class)
	}
	entry.insert(name, info)
	return nil
}

// SetComponentStatus replaces the status of a component.
func (c *Components) SetComponentStatus(class, name string, status Status) error {
	return c.replaceInPlace(class, name, WithStatus(status))
}

// SetLinkAVLProbeValue marks the probe values of a component as linked
// to the external catalog entry produced by converter. The probe map
// itself is unchanged, so the component matches exactly the same probe
// results as before.
func (c *Components) SetLinkAVLProbeValue(class, name, converter string, matched bool) error {
	info, err := c.GetComponent(class, name)
	if err != nil {
		return err
	}
	probes, ok := ProbesOf(info.values)
	if !ok {
		return newError(KindInvariant, "component %q of class %q is a default component and has no probe values to link", name, class)
	}
	linked := LinkedCatalogValues{Converter: converter, Matched: matched, Probes: probes}
	return c.replaceInPlace(class, name, WithValues(linked))
}

// SetBundleUUIDs replaces the provenance bundle UUIDs of a component.
func (c *Components) SetBundleUUIDs(class, name string, bundleUUIDs []string) error {
	return c.replaceInPlace(class, name, WithBundleUUIDs(bundleUUIDs))
}

// UpdateComponent renames oldName to newName and replaces its info.
// The caller is responsible for propagating the rename to every
// encoded field that references the component.
func (c *Components) UpdateComponent(class, oldName, newName string, info ComponentInfo) error {
	if _, err := c.GetComponent(class, oldName); err != nil {
		return err
	}
	entry := c.classes[class]
	if entry.region != nil {
		return newError(KindInvariant, "component class %q is generated from the region list", class)
	}
	if newName == "" {
		return newError(KindMalformed, "component name must not be empty")
	}
	if newName != oldName {
		if _, exists := entry.items[newName]; exists {
			return newError(KindDuplicate, "component %q is already defined in class %q", newName, class)
		}
	}
	c.checkSoftDefects(class, oldName, info, entry)
	entry.replace(oldName, newName, info)
	return nil
}

func (c *Components) replaceInPlace(class, name string, options ...ReplaceOption) error {
	info, err := c.GetComponent(class, name)
	if err != nil {
		return err
	}
	if c.classes[class].region != nil {
		return newError(KindInvariant, "component class %q is generated from the region list", class)
	}
	replaced, err := info.Replace(options...)
	if err != nil {
		return err
	}
	c.checkSoftDefects(class, name, replaced, c.classes[class])
	c.classes[class].replace(name, name, replaced)
	return nil
}

// checkSoftDefects compares info against every other component of the
// class. self names the entry being replaced, which is skipped.
func (c *Components) checkSoftDefects(class, self string, info ComponentInfo, entry *componentClass) {
	if entry == nil {
		return
	}
	for _, existing := range entry.names {
		if existing == self {
			continue
		}
		other := entry.items[existing]
		if info.IsDefault() {
			if other.IsDefault() {
				c.logger.Warn("more than one default component in class",
					"class", class, "existing", existing, "component", self)
				c.canEncode = false
			}
			continue
		}
		if other.IsDefault() || other.status == StatusDuplicate || info.status == StatusDuplicate {
			continue
		}
		if SameProbes(other.values, info.values) {
			c.logger.Warn("component has the same probe values as an existing component",
				"class", class, "existing", existing, "component", self)
			c.canEncode = false
		}
	}
}

func (c *Components) ensureClass(class string) *componentClass {
	entry, ok := c.classes[class]
	if !ok {
		entry = newComponentClass()
		c.classes[class] = entry
		c.order = append(c.order, class)
	}
	return entry
}

// declareClass registers an empty class with the given probeability.
func (c *Components) declareClass(class string, probeable bool) {
	c.ensureClass(class).probeable = probeable
}

// markExplicitDefault records a "default: true" marker.
func (c *Components) markExplicitDefault(class, name string) {
	c.ensureClass(class).explicitDefault[name] = true
}

func (c *Components) isExplicitDefault(class, name string) bool {
	entry, ok := c.classes[class]
	return ok && entry.explicitDefault[name]
}

// addRegionClass fills class with one generated component per region
// code.
func (c *Components) addRegionClass(class string, codes []string, legacy bool) error {
	if c.HasClass(class) {
		return newError(KindDuplicate, "component class %q is already defined", class)
	}
	entry := c.ensureClass(class)
	for _, code := range codes {
		if _, exists := entry.items[code]; exists {
			return newError(KindDuplicate, "region %q is listed twice in class %q", code, class)
		}
		info, err := NewComponentInfo(regionComponentValues(code), StatusSupported, nil, nil)
		if err != nil {
			return err
		}
		entry.insert(code, info)
	}
	entry.region = newRegionPayload(codes, legacy)
	return nil
}

func (c *Components) regionPayload(class string) *regionPayload {
	entry, ok := c.classes[class]
	if !ok {
		return nil
	}
	return entry.region
}

func (c *Components) clone() *Components {
	result := &Components{
		order:     slices.Clone(c.order),
		classes:   make(map[string]*componentClass, len(c.classes)),
		canEncode: c.canEncode,
		logger:    c.logger,
	}
	for class, entry := range c.classes {
		result.classes[class] = entry.clone()
	}
	return result
}
