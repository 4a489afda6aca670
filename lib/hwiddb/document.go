// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwiddb

import (
	"log/slog"
	"slices"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Document tags understood by the decoder and written by the encoder.
const (
	tagRegex           = "!re"
	tagLinkAVL         = "!link_avl"
	tagRegionField     = "!region_field"
	tagRegionComponent = "!region_component"
)

// Top-level document keys in serialization order.
const (
	keyChecksum         = "checksum"
	keyProject          = "project"
	keyEncodingPatterns = "encoding_patterns"
	keyImageID          = "image_id"
	keyPattern          = "pattern"
	keyEncodedFields    = "encoded_fields"
	keyComponents       = "components"
	keyRules            = "rules"
	keyFrameworkVersion = "framework_version"
)

var requiredKeys = []string{
	keyChecksum, keyProject, keyEncodingPatterns, keyImageID,
	keyPattern, keyEncodedFields, keyComponents, keyRules,
}

// decoder turns a parsed YAML node tree into a Database.
type decoder struct {
	regions []string
	logger  *slog.Logger
}

func (d *decoder) decode(data []byte) (Database, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return Database{}, newError(KindMalformed, "parsing database document: %v", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return Database{}, newError(KindMalformed, "database document is empty")
	}
	top := resolve(root.Content[0])
	pairs, err := mappingPairs(top, "database document")
	if err != nil {
		return Database{}, err
	}
	sections := map[string]*yaml.Node{}
	for _, pair := range pairs {
		key := pair.key.Value
		if _, duplicate := sections[key]; duplicate {
			return Database{}, newError(KindMalformed, "top-level key %q appears twice", key)
		}
		sections[key] = pair.value
		if !slices.Contains(requiredKeys, key) && key != keyFrameworkVersion {
			d.logger.Warn("ignoring unknown top-level key in database document", "key", key)
		}
	}
	for _, key := range requiredKeys {
		if _, ok := sections[key]; !ok {
			return Database{}, newError(KindMalformed, "database document is missing required key %q", key)
		}
	}

	db := newEmptyDatabase("", d.logger)
	if db.checksum, err = optionalString(sections[keyChecksum], keyChecksum); err != nil {
		return Database{}, err
	}
	project, err := scalarString(sections[keyProject], keyProject)
	if err != nil {
		return Database{}, err
	}
	if project == "" {
		return Database{}, newError(KindMalformed, "project must not be empty")
	}
	db.project = normalizeProject(project, d.logger)

	if version, ok := sections[keyFrameworkVersion]; ok && !isNull(version) {
		if db.frameworkVersion, err = scalarInt(version, keyFrameworkVersion); err != nil {
			return Database{}, err
		}
	}
	if err := d.decodeRegistry(sections[keyEncodingPatterns], keyEncodingPatterns, &db.encodingPatterns.numberedRegistry); err != nil {
		return Database{}, err
	}
	if err := d.decodeRegistry(sections[keyImageID], keyImageID, &db.imageID.numberedRegistry); err != nil {
		return Database{}, err
	}
	if err := d.decodePatterns(sections[keyPattern], db.pattern); err != nil {
		return Database{}, err
	}
	if err := d.decodeEncodedFields(sections[keyEncodedFields], db.encodedFields); err != nil {
		return Database{}, err
	}
	if err := d.decodeComponents(sections[keyComponents], db.components); err != nil {
		return Database{}, err
	}
	rules, err := d.decodeRules(sections[keyRules])
	if err != nil {
		return Database{}, err
	}
	if db.rules, err = NewRules(rules); err != nil {
		return Database{}, err
	}
	if err := db.SanityChecks(); err != nil {
		return Database{}, err
	}
	return db, nil
}

func (d *decoder) decodeRegistry(node *yaml.Node, section string, registry *numberedRegistry) error {
	pairs, err := mappingPairs(node, section)
	if err != nil {
		return err
	}
	for _, pair := range pairs {
		key, err := scalarInt(pair.key, section+" key")
		if err != nil {
			return err
		}
		name, err := scalarString(pair.value, section+" name")
		if err != nil {
			return err
		}
		if err := registry.Set(key, name); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) decodePatterns(node *yaml.Node, pattern *Pattern) error {
	records, err := sequenceItems(node, keyPattern)
	if err != nil {
		return err
	}
	for position, recordNode := range records {
		context := "pattern " + strconv.Itoa(position)
		pairs, err := mappingPairs(recordNode, context)
		if err != nil {
			return err
		}
		fields := map[string]*yaml.Node{}
		for _, pair := range pairs {
			fields[pair.key.Value] = pair.value
		}

		imageIDNodes, err := sequenceItems(fields["image_ids"], context+" image_ids")
		if err != nil {
			return err
		}
		if len(imageIDNodes) == 0 {
			return newError(KindMalformed, "%s has no image_ids", context)
		}
		schemeName, err := scalarString(fields["encoding_scheme"], context+" encoding_scheme")
		if err != nil {
			return err
		}
		scheme, err := ParseEncodingScheme(schemeName)
		if err != nil {
			return err
		}
		for index, imageIDNode := range imageIDNodes {
			imageID, err := scalarInt(imageIDNode, context+" image id")
			if err != nil {
				return err
			}
			if index == 0 {
				err = pattern.AddEmptyPattern(imageID, scheme)
			} else {
				err = pattern.AddImageID(imageID, ByPatternIndex(position))
			}
			if err != nil {
				return err
			}
		}

		chunks, err := sequenceItems(fields["fields"], context+" fields")
		if err != nil {
			return err
		}
		for _, chunkNode := range chunks {
			chunkPairs, err := mappingPairs(chunkNode, context+" field")
			if err != nil {
				return err
			}
			if len(chunkPairs) != 1 {
				return newError(KindMalformed, "%s field entry must map one field name to a bit length", context)
			}
			bitLength, err := scalarInt(chunkPairs[0].value, context+" bit length")
			if err != nil {
				return err
			}
			if err := pattern.AppendField(chunkPairs[0].key.Value, bitLength, ByPatternIndex(position)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *decoder) decodeEncodedFields(node *yaml.Node, fields *EncodedFields) error {
	pairs, err := mappingPairs(node, keyEncodedFields)
	if err != nil {
		return err
	}
	for _, pair := range pairs {
		name := pair.key.Value
		if pair.value.Tag == tagRegionField {
			codes, legacy, err := d.regionCodes(pair.value, "encoded field "+name)
			if err != nil {
				return err
			}
			if err := fields.addRegionField(name, codes, legacy); err != nil {
				return err
			}
			continue
		}
		rowPairs, err := mappingPairs(pair.value, "encoded field "+name)
		if err != nil {
			return err
		}
		rows := make([]IndexedCombination, 0, len(rowPairs))
		for _, rowPair := range rowPairs {
			index, err := scalarInt(rowPair.key, "encoded field "+name+" index")
			if err != nil {
				return err
			}
			combination, err := decodeCombination(rowPair.value, name)
			if err != nil {
				return err
			}
			rows = append(rows, IndexedCombination{Index: index, Combination: combination})
		}
		if err := fields.loadField(name, rows); err != nil {
			return err
		}
	}
	return nil
}

func decodeCombination(node *yaml.Node, field string) (Combination, error) {
	pairs, err := mappingPairs(node, "encoded field "+field+" combination")
	if err != nil {
		return nil, err
	}
	combination := Combination{}
	for _, pair := range pairs {
		names, err := stringOrList(pair.value, "encoded field "+field+" class "+pair.key.Value)
		if err != nil {
			return nil, err
		}
		combination[pair.key.Value] = names
	}
	return combination, nil
}

func (d *decoder) decodeComponents(node *yaml.Node, components *Components) error {
	pairs, err := mappingPairs(node, keyComponents)
	if err != nil {
		return err
	}
	for _, pair := range pairs {
		class := pair.key.Value
		if pair.value.Tag == tagRegionComponent {
			codes, legacy, err := d.regionCodes(pair.value, "component class "+class)
			if err != nil {
				return err
			}
			if err := components.addRegionClass(class, codes, legacy); err != nil {
				return err
			}
			continue
		}
		if components.HasClass(class) {
			return newError(KindDuplicate, "component class %q is defined twice", class)
		}
		classPairs, err := mappingPairs(pair.value, "component class "+class)
		if err != nil {
			return err
		}
		probeable := true
		var items *yaml.Node
		for _, classPair := range classPairs {
			switch classPair.key.Value {
			case "items":
				items = classPair.value
			case "probeable":
				if err := resolve(classPair.value).Decode(&probeable); err != nil {
					return newError(KindMalformed, "component class %q probeable: %v", class, err)
				}
			default:
				d.logger.Warn("ignoring unknown key in component class", "class", class, "key", classPair.key.Value)
			}
		}
		components.declareClass(class, probeable)

		itemPairs, err := mappingPairs(items, "component class "+class+" items")
		if err != nil {
			return err
		}
		for _, itemPair := range itemPairs {
			name := itemPair.key.Value
			info, explicitDefault, err := decodeComponentInfo(itemPair.value, class, name)
			if err != nil {
				return err
			}
			if err := components.AddComponent(class, name, info); err != nil {
				return err
			}
			if explicitDefault {
				components.markExplicitDefault(class, name)
			}
		}
	}
	return nil
}

func decodeComponentInfo(node *yaml.Node, class, name string) (ComponentInfo, bool, error) {
	context := "component " + class + "/" + name
	pairs, err := mappingPairs(node, context)
	if err != nil {
		return ComponentInfo{}, false, err
	}
	var (
		values          Values = NoneValues{}
		status                 = StatusSupported
		information     map[string]string
		bundleUUIDs     []string
		explicitDefault bool
		sawValues       bool
	)
	for _, pair := range pairs {
		switch pair.key.Value {
		case "values":
			sawValues = true
			if values, err = decodeValues(pair.value, context); err != nil {
				return ComponentInfo{}, false, err
			}
		case "status":
			text, err := scalarString(pair.value, context+" status")
			if err != nil {
				return ComponentInfo{}, false, err
			}
			if status, err = ParseStatus(text); err != nil {
				return ComponentInfo{}, false, err
			}
		case "information":
			if isNull(pair.value) {
				continue
			}
			infoPairs, err := mappingPairs(pair.value, context+" information")
			if err != nil {
				return ComponentInfo{}, false, err
			}
			information = make(map[string]string, len(infoPairs))
			for _, infoPair := range infoPairs {
				key := infoPair.key.Value
				text, err := scalarString(infoPair.value, context+" information "+key)
				if err != nil {
					return ComponentInfo{}, false, err
				}
				information[key] = text
			}
		case "bundle_uuids":
			if bundleUUIDs, err = stringOrList(pair.value, context+" bundle_uuids"); err != nil {
				return ComponentInfo{}, false, err
			}
		case "default":
			if err := resolve(pair.value).Decode(&explicitDefault); err != nil {
				return ComponentInfo{}, false, newError(KindMalformed, "%s default: %v", context, err)
			}
		default:
			return ComponentInfo{}, false, newError(KindMalformed, "%s has unknown key %q", context, pair.key.Value)
		}
	}
	if !sawValues {
		return ComponentInfo{}, false, newError(KindMalformed, "%s has no values", context)
	}
	if explicitDefault && !IsNone(values) {
		return ComponentInfo{}, false, newError(KindMalformed, "%s is marked default but has probe values", context)
	}
	info, err := NewComponentInfo(values, status, information, bundleUUIDs)
	if err != nil {
		return ComponentInfo{}, false, err
	}
	return info, explicitDefault, nil
}

func decodeValues(node *yaml.Node, context string) (Values, error) {
	node = resolve(node)
	if isNull(node) {
		return NoneValues{}, nil
	}
	if node.Tag == tagLinkAVL {
		pairs, err := mappingPairs(node, context+" linked values")
		if err != nil {
			return nil, err
		}
		var linked LinkedCatalogValues
		sawOriginal := false
		for _, pair := range pairs {
			switch pair.key.Value {
			case "converter":
				if linked.Converter, err = scalarString(pair.value, context+" converter"); err != nil {
					return nil, err
				}
			case "probe_value_matched":
				if err := resolve(pair.value).Decode(&linked.Matched); err != nil {
					return nil, newError(KindMalformed, "%s probe_value_matched: %v", context, err)
				}
			case "original_values":
				sawOriginal = true
				if linked.Probes, err = decodeProbes(pair.value, context); err != nil {
					return nil, err
				}
			default:
				return nil, newError(KindMalformed, "%s linked values have unknown key %q", context, pair.key.Value)
			}
		}
		if !sawOriginal {
			return nil, newError(KindMalformed, "%s linked values have no original_values", context)
		}
		return linked, nil
	}
	probes, err := decodeProbes(node, context)
	if err != nil {
		return nil, err
	}
	return PlainValues{Probes: probes}, nil
}

func decodeProbes(node *yaml.Node, context string) (ProbeValues, error) {
	pairs, err := mappingPairs(node, context+" values")
	if err != nil {
		return nil, err
	}
	probes := make(ProbeValues, len(pairs))
	for _, pair := range pairs {
		value := resolve(pair.value)
		if value.Kind != yaml.ScalarNode {
			return nil, newError(KindMalformed, "%s probe value %q must be a scalar", context, pair.key.Value)
		}
		probes[pair.key.Value] = Expected{Text: value.Value, Regex: value.Tag == tagRegex}
	}
	return probes, nil
}

func (d *decoder) decodeRules(node *yaml.Node) ([]Rule, error) {
	items, err := sequenceItems(node, keyRules)
	if err != nil {
		return nil, err
	}
	rules := make([]Rule, 0, len(items))
	for position, item := range items {
		context := "rule " + strconv.Itoa(position)
		pairs, err := mappingPairs(item, context)
		if err != nil {
			return nil, err
		}
		var rule Rule
		for _, pair := range pairs {
			switch pair.key.Value {
			case "name":
				rule.Name, err = scalarString(pair.value, context+" name")
			case "evaluate":
				rule.Evaluate, err = stringOrList(pair.value, context+" evaluate")
			case "when":
				rule.When, err = optionalString(pair.value, context+" when")
			case "otherwise":
				rule.Otherwise, err = stringOrList(pair.value, context+" otherwise")
			default:
				err = newError(KindMalformed, "%s has unknown key %q", context, pair.key.Value)
			}
			if err != nil {
				return nil, err
			}
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// regionCodes reads the payload of a region tag: a sequence of codes,
// or nothing for the legacy form that takes the external list.
func (d *decoder) regionCodes(node *yaml.Node, context string) ([]string, bool, error) {
	if node.Kind == yaml.ScalarNode && node.Value == "" {
		return slices.Clone(d.regions), true, nil
	}
	codes, err := stringOrList(node, context+" regions")
	if err != nil {
		return nil, false, err
	}
	return codes, false, nil
}

type nodePair struct {
	key   *yaml.Node
	value *yaml.Node
}

// resolve follows alias nodes to their anchor.
func resolve(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	return node
}

func isNull(node *yaml.Node) bool {
	node = resolve(node)
	return node == nil || (node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null")
}

// mappingPairs returns the key/value pairs of a mapping with aliases
// resolved and "<<" merge keys expanded. Explicit keys override merged
// ones. A null node is an empty mapping.
func mappingPairs(node *yaml.Node, context string) ([]nodePair, error) {
	node = resolve(node)
	if isNull(node) {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, newError(KindMalformed, "%s must be a mapping", context)
	}
	var merged, explicit []nodePair
	for index := 0; index+1 < len(node.Content); index += 2 {
		key := resolve(node.Content[index])
		value := resolve(node.Content[index+1])
		if key.Kind != yaml.ScalarNode {
			return nil, newError(KindMalformed, "%s has a non-scalar key", context)
		}
		if key.ShortTag() == "!!merge" {
			sources := []*yaml.Node{value}
			if value.Kind == yaml.SequenceNode {
				sources = value.Content
			}
			for _, source := range sources {
				pairs, err := mappingPairs(source, context)
				if err != nil {
					return nil, err
				}
				merged = append(merged, pairs...)
			}
			continue
		}
		explicit = append(explicit, nodePair{key: key, value: value})
	}
	if len(merged) == 0 {
		return explicit, nil
	}
	seen := map[string]bool{}
	for _, pair := range explicit {
		seen[pair.key.Value] = true
	}
	result := slices.Clone(explicit)
	for _, pair := range merged {
		if !seen[pair.key.Value] {
			seen[pair.key.Value] = true
			result = append(result, pair)
		}
	}
	return result, nil
}

// sequenceItems returns the items of a sequence. A null node is empty.
func sequenceItems(node *yaml.Node, context string) ([]*yaml.Node, error) {
	node = resolve(node)
	if isNull(node) {
		return nil, nil
	}
	if node.Kind != yaml.SequenceNode {
		return nil, newError(KindMalformed, "%s must be a sequence", context)
	}
	items := make([]*yaml.Node, 0, len(node.Content))
	for _, item := range node.Content {
		items = append(items, resolve(item))
	}
	return items, nil
}

func scalarString(node *yaml.Node, context string) (string, error) {
	node = resolve(node)
	if node == nil || node.Kind != yaml.ScalarNode || isNull(node) {
		return "", newError(KindMalformed, "%s must be a string", context)
	}
	return node.Value, nil
}

func optionalString(node *yaml.Node, context string) (string, error) {
	if isNull(node) {
		return "", nil
	}
	return scalarString(node, context)
}

func scalarInt(node *yaml.Node, context string) (int, error) {
	text, err := scalarString(node, context)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(text)
	if err != nil {
		return 0, newError(KindMalformed, "%s %q is not an integer", context, text)
	}
	return value, nil
}

// stringOrList reads null, one string, or a list of strings.
func stringOrList(node *yaml.Node, context string) ([]string, error) {
	node = resolve(node)
	switch {
	case isNull(node):
		return nil, nil
	case node.Kind == yaml.ScalarNode:
		return []string{node.Value}, nil
	case node.Kind == yaml.SequenceNode:
		result := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			text, err := scalarString(item, context)
			if err != nil {
				return nil, err
			}
			result = append(result, text)
		}
		return result, nil
	default:
		return nil, newError(KindMalformed, "%s must be a string or a list of strings", context)
	}
}
