// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwiddb

import (
	"slices"
	"strings"
)

const (
	deviceInfoPrefix = "device_info."
	verifyPrefix     = "verify."
)

// Expressions is the body of a rule clause: one expression or a list
// of them. The engine stores rule text but never evaluates it.
type Expressions []string

// Rule is one stored rule record.
type Rule struct {
	Name      string
	Evaluate  Expressions
	When      string
	Otherwise Expressions
}

// Validate checks the name prefix and that the rule has something to
// evaluate.
func (r Rule) Validate() error {
	if !strings.HasPrefix(r.Name, deviceInfoPrefix) && !strings.HasPrefix(r.Name, verifyPrefix) {
		return newError(KindMalformed, "rule name %q must start with %q or %q", r.Name, deviceInfoPrefix, verifyPrefix)
	}
	if len(r.Evaluate) == 0 {
		return newError(KindMalformed, "rule %q has nothing to evaluate", r.Name)
	}
	return nil
}

// IsDeviceInfo reports whether the rule is in the device_info namespace.
func (r Rule) IsDeviceInfo() bool {
	return strings.HasPrefix(r.Name, deviceInfoPrefix)
}

func (r Rule) clone() Rule {
	r.Evaluate = slices.Clone(r.Evaluate)
	r.Otherwise = slices.Clone(r.Otherwise)
	return r
}

// Rules is the ordered rule list. Order is significant to the rule
// evaluator and is preserved through load and export.
type Rules struct {
	rules []Rule
}

// NewRules validates and stores rules in the given order.
func NewRules(rules []Rule) (*Rules, error) {
	result := &Rules{}
	if err := result.Replace(rules); err != nil {
		return nil, err
	}
	return result, nil
}

// Rules returns a copy of the rule list.
func (r *Rules) Rules() []Rule {
	result := make([]Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		result = append(result, rule.clone())
	}
	return result
}

// Len returns the number of rules.
func (r *Rules) Len() int { return len(r.rules) }

// Replace swaps the whole list. Nothing changes if any rule is invalid.
func (r *Rules) Replace(rules []Rule) error {
	replacement := make([]Rule, 0, len(rules))
	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			return err
		}
		replacement = append(replacement, rule.clone())
	}
	r.rules = replacement
	return nil
}

// RuleOptions carries the optional parts of [Rules.AddDeviceInfoRule].
type RuleOptions struct {
	When      string
	Otherwise Expressions
	// Position, when set, is the ordinal among existing device_info
	// rules before which the new rule is inserted. A position at or
	// past the number of device_info rules places the new rule right
	// after the last one. When nil the rule is appended to the list.
	Position *int
}

// AddDeviceInfoRule inserts a rule named "device_info." + suffix.
func (r *Rules) AddDeviceInfoRule(suffix string, evaluate Expressions, options RuleOptions) error {
	rule := Rule{
		Name:      deviceInfoPrefix + suffix,
		Evaluate:  slices.Clone(evaluate),
		When:      options.When,
		Otherwise: slices.Clone(options.Otherwise),
	}
	if suffix == "" {
		return newError(KindMalformed, "device_info rule name suffix must not be empty")
	}
	if err := rule.Validate(); err != nil {
		return err
	}
	if options.Position == nil {
		r.rules = append(r.rules, rule)
		return nil
	}
	position := *options.Position
	if position < 0 {
		return newError(KindOutOfRange, "rule position %d is negative", position)
	}

	var deviceInfoIndices []int
	for index, existing := range r.rules {
		if existing.IsDeviceInfo() {
			deviceInfoIndices = append(deviceInfoIndices, index)
		}
	}
	var at int
	switch {
	case position < len(deviceInfoIndices):
		at = deviceInfoIndices[position]
	case len(deviceInfoIndices) > 0:
		at = deviceInfoIndices[len(deviceInfoIndices)-1] + 1
	default:
		at = len(r.rules)
	}
	r.rules = slices.Insert(r.rules, at, rule)
	return nil
}

func (r *Rules) clone() *Rules {
	return &Rules{rules: r.Rules()}
}
