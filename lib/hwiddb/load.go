// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwiddb

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// LoadOptions controls how a document is turned into a database.
type LoadOptions struct {
	// ExpectedChecksum, when non-empty, must equal the checksum stored
	// in the document.
	ExpectedChecksum string

	// VerifyChecksum recomputes the checksum of the loaded text and
	// requires it to match the stored one.
	VerifyChecksum bool

	// Regions is the external region list used by the legacy
	// "!region_field" and "!region_component" forms that carry no list
	// of their own.
	Regions []string

	// Logger receives soft-defect warnings. Nil uses slog.Default().
	Logger *slog.Logger
}

// LoadData decodes and validates a serialized document.
func LoadData(data []byte, options LoadOptions) (*Database, error) {
	db, err := load(data, options)
	if err != nil {
		return nil, err
	}
	return &db, nil
}

// LoadWritableData is LoadData returning a [WritableDatabase].
func LoadWritableData(data []byte, options LoadOptions) (*WritableDatabase, error) {
	db, err := load(data, options)
	if err != nil {
		return nil, err
	}
	return &WritableDatabase{Database: db}, nil
}

// LoadFile reads and loads the document at path.
func LoadFile(path string, options LoadOptions) (*Database, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading database %s: %w", path, err)
	}
	db, err := LoadData(data, options)
	if err != nil {
		return nil, fmt.Errorf("loading database %s: %w", path, err)
	}
	return db, nil
}

// LoadWritableFile reads and loads the document at path for editing.
func LoadWritableFile(path string, options LoadOptions) (*WritableDatabase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading database %s: %w", path, err)
	}
	db, err := LoadWritableData(data, options)
	if err != nil {
		return nil, fmt.Errorf("loading database %s: %w", path, err)
	}
	return db, nil
}

func load(data []byte, options LoadOptions) (Database, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	decoder := &decoder{regions: options.Regions, logger: logger}
	db, err := decoder.decode(data)
	if err != nil {
		return Database{}, err
	}
	if options.ExpectedChecksum != "" && options.ExpectedChecksum != db.checksum {
		return Database{}, newError(KindChecksumMismatch, "stored checksum %q does not match expected %q",
			db.checksum, options.ExpectedChecksum)
	}
	if options.VerifyChecksum {
		if actual := ChecksumForText(data); actual != db.checksum {
			return Database{}, newError(KindChecksumMismatch, "stored checksum %q does not match content checksum %q",
				db.checksum, actual)
		}
	}
	return db, nil
}

// SaveFile writes the database with a fresh checksum to path.
func (d *Database) SaveFile(path string) error {
	data, err := d.Marshal()
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

// writeFileAtomic writes data to a temporary sibling of path and
// renames it into place, so readers never observe a partial document.
func writeFileAtomic(path string, data []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".hwid-*.yaml")
	if err != nil {
		return fmt.Errorf("creating temp database file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing database data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp database file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("setting database file mode: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming database file to %s: %w", path, err)
	}

	success = true
	return nil
}
