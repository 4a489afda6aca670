// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package editbatch

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/bureau-foundation/hwid/lib/hwiddb"
)

// Apply runs every operation of batch against a clone of db and
// returns the edited clone. On failure db is untouched and the error
// names the failing operation.
func Apply(db *hwiddb.WritableDatabase, batch *Batch, logger *slog.Logger) (*hwiddb.WritableDatabase, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if issues := Validate(batch); len(issues) > 0 {
		return nil, fmt.Errorf("invalid edit batch:\n  %s", strings.Join(issues, "\n  "))
	}

	working := db.Clone()
	for index, operation := range batch.Operations {
		if err := applyOperation(working, operation); err != nil {
			return nil, fmt.Errorf("operations[%d] %s: %w", index, operation.Op, err)
		}
		logger.Debug("applied edit", "index", index, "op", operation.Op)
	}
	if err := working.SanityChecks(); err != nil {
		return nil, fmt.Errorf("edited database fails validation: %w", err)
	}
	if db.CanEncode() && !working.CanEncode() {
		logger.Warn("edit batch introduced ambiguous entries; the database can no longer mint identifiers",
			"project", working.Project())
	}
	return working, nil
}

func applyOperation(db *hwiddb.WritableDatabase, operation Operation) error {
	switch operation.Op {
	case OpAddComponent:
		status, err := statusOf(operation)
		if err != nil {
			return err
		}
		return db.AddComponent(operation.Class, operation.Name, valuesOf(operation), status, operation.Information)

	case OpUpdateComponent:
		status, err := statusOf(operation)
		if err != nil {
			return err
		}
		newName := operation.NewName
		if newName == "" {
			newName = operation.Name
		}
		bundleUUIDs := operation.BundleUUIDs
		if operation.NewBundle {
			bundleUUIDs = append(bundleUUIDs, uuid.NewString())
		}
		return db.UpdateComponent(operation.Class, operation.Name, newName, hwiddb.ComponentUpdate{
			Values:      valuesOf(operation),
			Status:      status,
			Information: operation.Information,
			BundleUUIDs: bundleUUIDs,
		})

	case OpSetComponentStatus:
		status, err := hwiddb.ParseStatus(operation.Status)
		if err != nil {
			return err
		}
		return db.SetComponentStatus(operation.Class, operation.Name, status)

	case OpSetLinkAVL:
		return db.SetLinkAVLProbeValue(operation.Class, operation.Name, operation.Converter, operation.Matched)

	case OpSetBundleUUIDs:
		bundleUUIDs := operation.BundleUUIDs
		if operation.NewBundle {
			info, err := db.GetComponent(operation.Class, operation.Name)
			if err != nil {
				return err
			}
			bundleUUIDs = append(info.BundleUUIDs(), append(bundleUUIDs, uuid.NewString())...)
		}
		return db.SetBundleUUIDs(operation.Class, operation.Name, bundleUUIDs)

	case OpAddImage:
		scheme, err := hwiddb.ParseEncodingScheme(operation.EncodingScheme)
		if err != nil {
			return err
		}
		return db.AddImage(*operation.ImageID, operation.ImageName, scheme, hwiddb.ImageOptions{
			NewPattern: operation.NewPattern,
			Reference:  referenceOf(operation),
		})

	case OpAppendEncodedFieldBit:
		selector := referenceOf(operation)
		if operation.ImageID != nil {
			selector = hwiddb.ByImageID(*operation.ImageID)
		}
		return db.AppendEncodedFieldBit(operation.Field, operation.BitLength, selector)

	case OpAddEncodedField:
		return db.AddNewEncodedField(operation.Field, hwiddb.Combination(operation.Components))

	case OpAddEncodedFieldComponents:
		combination := hwiddb.Combination(operation.Components)
		if operation.Index != nil {
			return db.AddEncodedFieldComponentsAt(operation.Field, combination, *operation.Index)
		}
		return db.AddEncodedFieldComponents(operation.Field, combination)

	case OpAddDeviceInfoRule:
		return db.AddDeviceInfoRule(operation.Suffix, hwiddb.Expressions(operation.Evaluate), hwiddb.RuleOptions{
			When:      operation.When,
			Otherwise: hwiddb.Expressions(operation.Otherwise),
			Position:  operation.Position,
		})

	case OpRenameImages:
		names := make(map[int]string, len(operation.Images))
		for key, name := range operation.Images {
			imageID, err := strconv.Atoi(key)
			if err != nil {
				return fmt.Errorf("images key %q is not an image id", key)
			}
			names[imageID] = name
		}
		return db.RenameImages(names)

	case OpSetFrameworkVersion:
		return db.SetFrameworkVersion(operation.FrameworkVersion)

	default:
		return errors.New("unknown op")
	}
}

func statusOf(operation Operation) (hwiddb.Status, error) {
	if operation.Status == "" {
		return hwiddb.StatusSupported, nil
	}
	return hwiddb.ParseStatus(operation.Status)
}

// valuesOf builds the probe-match specification of a component edit.
// Default components have none.
func valuesOf(operation Operation) hwiddb.Values {
	if operation.Default {
		return hwiddb.NoneValues{}
	}
	probes := hwiddb.ProbeValues{}
	for key, text := range operation.Values {
		probes[key] = hwiddb.Literal(text)
	}
	for key, pattern := range operation.RegexValues {
		probes[key] = hwiddb.Regexp(pattern)
	}
	return hwiddb.PlainValues{Probes: probes}
}

func referenceOf(operation Operation) hwiddb.Selector {
	switch {
	case operation.ReferenceImageID != nil:
		return hwiddb.ByImageID(*operation.ReferenceImageID)
	case operation.PatternIndex != nil:
		return hwiddb.ByPatternIndex(*operation.PatternIndex)
	default:
		return hwiddb.Selector{}
	}
}
