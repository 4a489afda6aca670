// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwiddb

import (
	"bytes"
	"maps"
	"slices"
	"strconv"

	"gopkg.in/yaml.v3"
)

// MarshalBody serializes the database without the checksum line. The
// output is stable: the same document always yields the same bytes.
func (d *Database) MarshalBody() ([]byte, error) {
	root := mappingNode("")
	appendPair(root, keyProject, stringNode(d.project))
	appendPair(root, keyEncodingPatterns, registryNode(&d.encodingPatterns.numberedRegistry))
	appendPair(root, keyImageID, registryNode(&d.imageID.numberedRegistry))
	appendPair(root, keyPattern, d.patternNode())
	appendPair(root, keyEncodedFields, d.encodedFieldsNode())
	appendPair(root, keyComponents, d.componentsNode())
	appendPair(root, keyRules, rulesNode(d.rules.rules))
	if d.frameworkVersion > 0 {
		appendPair(root, keyFrameworkVersion, intNode(d.frameworkVersion))
	}

	var buffer bytes.Buffer
	encoder := yaml.NewEncoder(&buffer)
	encoder.SetIndent(2)
	if err := encoder.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}); err != nil {
		return nil, newError(KindMalformed, "encoding database document: %v", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, newError(KindMalformed, "encoding database document: %v", err)
	}
	return buffer.Bytes(), nil
}

// Marshal serializes the database with a freshly computed checksum
// line in front.
func (d *Database) Marshal() ([]byte, error) {
	body, err := d.MarshalBody()
	if err != nil {
		return nil, err
	}
	header := keyChecksum + ": " + ChecksumForText(body) + "\n"
	return append([]byte(header), body...), nil
}

func registryNode(registry *numberedRegistry) *yaml.Node {
	node := mappingNode("")
	for _, key := range registry.Keys() {
		name, _ := registry.Get(key)
		node.Content = append(node.Content, intNode(key), stringNode(name))
	}
	return node
}

func (d *Database) patternNode() *yaml.Node {
	node := sequenceNode("")
	for _, record := range d.pattern.Records() {
		item := mappingNode("")
		imageIDs := sequenceNode("")
		imageIDs.Style = yaml.FlowStyle
		for _, imageID := range record.ImageIDs {
			imageIDs.Content = append(imageIDs.Content, intNode(imageID))
		}
		appendPair(item, "image_ids", imageIDs)
		appendPair(item, "encoding_scheme", stringNode(string(record.Scheme)))
		fields := sequenceNode("")
		for _, chunk := range record.Fields {
			chunkNode := mappingNode("")
			appendPair(chunkNode, chunk.Name, intNode(chunk.BitLength))
			fields.Content = append(fields.Content, chunkNode)
		}
		if len(fields.Content) == 0 {
			fields.Style = yaml.FlowStyle
		}
		appendPair(item, "fields", fields)
		node.Content = append(node.Content, item)
	}
	return node
}

func (d *Database) encodedFieldsNode() *yaml.Node {
	node := mappingNode("")
	for _, name := range d.encodedFields.FieldNames() {
		if region := d.encodedFields.regionPayload(name); region != nil {
			appendPair(node, name, regionNode(tagRegionField, region))
			continue
		}
		rows, _ := d.encodedFields.GetField(name)
		rowsNode := mappingNode("")
		for _, row := range rows {
			combination := mappingNode("")
			for _, class := range row.Combination.Classes() {
				appendPair(combination, class, namesNode(row.Combination[class]))
			}
			rowsNode.Content = append(rowsNode.Content, intNode(row.Index), combination)
		}
		appendPair(node, name, rowsNode)
	}
	return node
}

// namesNode writes no names as null, one name as a scalar and several
// as a list.
func namesNode(names []string) *yaml.Node {
	switch len(names) {
	case 0:
		return nullNode()
	case 1:
		return stringNode(names[0])
	default:
		return stringsNode(names)
	}
}

func regionNode(tag string, region *regionPayload) *yaml.Node {
	if region.legacy {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag}
	}
	node := stringsNode(region.codes)
	node.Tag = tag
	return node
}

func (d *Database) componentsNode() *yaml.Node {
	node := mappingNode("")
	for _, class := range d.components.ComponentClasses() {
		if region := d.components.regionPayload(class); region != nil {
			appendPair(node, class, regionNode(tagRegionComponent, region))
			continue
		}
		classNode := mappingNode("")
		if !d.components.IsProbeable(class) {
			appendPair(classNode, "probeable", boolNode(false))
		}
		items := mappingNode("")
		for _, component := range d.components.GetComponents(class) {
			appendPair(items, component.Name,
				componentNode(component.Info, d.components.isExplicitDefault(class, component.Name)))
		}
		appendPair(classNode, "items", items)
		appendPair(node, class, classNode)
	}
	return node
}

func componentNode(info ComponentInfo, explicitDefault bool) *yaml.Node {
	node := mappingNode("")
	if explicitDefault {
		appendPair(node, "default", boolNode(true))
	}
	if info.Status() != StatusSupported {
		appendPair(node, "status", stringNode(string(info.Status())))
	}
	switch values := info.Values().(type) {
	case NoneValues:
		appendPair(node, "values", nullNode())
	case PlainValues:
		appendPair(node, "values", probesNode(values.Probes))
	case LinkedCatalogValues:
		linked := mappingNode(tagLinkAVL)
		appendPair(linked, "converter", stringNode(values.Converter))
		appendPair(linked, "original_values", probesNode(values.Probes))
		appendPair(linked, "probe_value_matched", boolNode(values.Matched))
		appendPair(node, "values", linked)
	}
	if information := info.Information(); len(information) > 0 {
		informationNode := mappingNode("")
		for _, key := range slices.Sorted(maps.Keys(information)) {
			appendPair(informationNode, key, stringNode(information[key]))
		}
		appendPair(node, "information", informationNode)
	}
	if bundleUUIDs := info.BundleUUIDs(); len(bundleUUIDs) > 0 {
		appendPair(node, "bundle_uuids", stringsNode(bundleUUIDs))
	}
	return node
}

func probesNode(probes ProbeValues) *yaml.Node {
	node := mappingNode("")
	for _, key := range probes.Keys() {
		expected := probes[key]
		value := stringNode(expected.Text)
		if expected.Regex {
			value.Tag = tagRegex
		}
		appendPair(node, key, value)
	}
	return node
}

func rulesNode(rules []Rule) *yaml.Node {
	node := sequenceNode("")
	for _, rule := range rules {
		item := mappingNode("")
		appendPair(item, "name", stringNode(rule.Name))
		if rule.When != "" {
			appendPair(item, "when", stringNode(rule.When))
		}
		appendPair(item, "evaluate", expressionsNode(rule.Evaluate))
		if len(rule.Otherwise) > 0 {
			appendPair(item, "otherwise", expressionsNode(rule.Otherwise))
		}
		node.Content = append(node.Content, item)
	}
	return node
}

func expressionsNode(expressions Expressions) *yaml.Node {
	if len(expressions) == 1 {
		return stringNode(expressions[0])
	}
	return stringsNode(expressions)
}

func appendPair(mapping *yaml.Node, key string, value *yaml.Node) {
	mapping.Content = append(mapping.Content, stringNode(key), value)
}

func mappingNode(tag string) *yaml.Node {
	if tag == "" {
		tag = "!!map"
	}
	return &yaml.Node{Kind: yaml.MappingNode, Tag: tag}
}

func sequenceNode(tag string) *yaml.Node {
	if tag == "" {
		tag = "!!seq"
	}
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: tag}
}

func stringNode(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}

func stringsNode(values []string) *yaml.Node {
	node := sequenceNode("")
	for _, value := range values {
		node.Content = append(node.Content, stringNode(value))
	}
	return node
}

func intNode(value int) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(value)}
}

func boolNode(value bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(value)}
}

func nullNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}
