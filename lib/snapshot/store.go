// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bureau-foundation/hwid/lib/clock"
	"github.com/bureau-foundation/hwid/lib/hwiddb"
)

// ErrNotFound is returned when no snapshot matches an ID or prefix.
var ErrNotFound = errors.New("snapshot not found")

// minPrefixLength is the shortest ID prefix Resolve accepts.
const minPrefixLength = 4

// Options configures a [Store].
type Options struct {
	// Compression is applied to new snapshots. Existing snapshots keep
	// whatever compression they were written with.
	Compression Compression

	// Clock stamps new snapshots. Nil uses clock.Real().
	Clock clock.Clock

	// Logger receives one debug record per write. Nil uses
	// slog.Default().
	Logger *slog.Logger
}

// Store is a directory of snapshot files. Writes are atomic renames,
// so concurrent readers never see a partial snapshot. Two processes
// saving the same document race harmlessly: both write identical
// content to the same path.
type Store struct {
	dir         string
	compression Compression
	clock       clock.Clock
	logger      *slog.Logger
}

// NewStore returns a Store rooted at dir. The directory is created on
// the first Save.
func NewStore(dir string, options Options) *Store {
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &Store{
		dir:         dir,
		compression: options.Compression,
		clock:       options.Clock,
		logger:      options.Logger,
	}
}

// Dir returns the root directory of the store.
func (s *Store) Dir() string { return s.dir }

// Save serializes db with a fresh checksum and stores it. Saving a
// document that is already stored returns the existing header
// unchanged.
func (s *Store) Save(db *hwiddb.Database, note string) (Header, error) {
	document, err := db.Marshal()
	if err != nil {
		return Header{}, fmt.Errorf("serializing %s: %w", db.Project(), err)
	}
	return s.SaveDocument(db.Project(), document, note)
}

// SaveDocument stores already serialized document text. The checksum
// recorded in the header is recomputed from the text.
func (s *Store) SaveDocument(project string, document []byte, note string) (Header, error) {
	id := HashDocument(document)
	path := s.path(id)

	if existing, err := s.readHeader(path); err == nil {
		return existing, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("replacing unreadable snapshot", "id", id.Short(), "error", err)
	}

	payload, used, err := compress(document, s.compression)
	if err != nil {
		return Header{}, err
	}
	header := Header{
		ID:          id,
		Project:     project,
		Checksum:    hwiddb.ChecksumForText(document),
		Compression: used,
		Size:        len(document),
		CreatedAt:   s.clock.Now().UTC(),
		Note:        note,
	}
	data, err := encodeContainer(header, payload)
	if err != nil {
		return Header{}, err
	}
	if err := s.writeFile(path, data); err != nil {
		return Header{}, err
	}
	s.logger.Debug("saved snapshot",
		"id", id.Short(),
		"project", project,
		"compression", used.String(),
		"size", len(document),
		"stored", len(data),
	)
	return header, nil
}

// Load reads and verifies the snapshot with the given ID.
func (s *Store) Load(id ID) (Snapshot, error) {
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, id.Short())
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("reading snapshot %s: %w", id.Short(), err)
	}
	snapshot, err := decodeContainer(data)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot %s: %w", id.Short(), err)
	}
	return snapshot, nil
}

// LoadDatabase loads the snapshot with the given ID as a writable
// database.
func (s *Store) LoadDatabase(id ID, options hwiddb.LoadOptions) (*hwiddb.WritableDatabase, error) {
	snapshot, err := s.Load(id)
	if err != nil {
		return nil, err
	}
	db, err := hwiddb.LoadWritableData(snapshot.Document, options)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", id.Short(), err)
	}
	return db, nil
}

// Restore writes the document of the snapshot with the given ID to
// path, byte for byte. The document is loaded with options first, so
// a snapshot that no longer validates is never written out.
func (s *Store) Restore(id ID, path string, options hwiddb.LoadOptions) (Header, error) {
	snapshot, err := s.Load(id)
	if err != nil {
		return Header{}, err
	}
	if _, err := hwiddb.LoadData(snapshot.Document, options); err != nil {
		return Header{}, fmt.Errorf("snapshot %s: %w", id.Short(), err)
	}
	if err := s.writeFile(path, snapshot.Document); err != nil {
		return Header{}, err
	}
	s.logger.Info("restored snapshot",
		"id", id.Short(),
		"project", snapshot.Project,
		"path", path,
	)
	return snapshot.Header, nil
}

// List returns the headers of every snapshot, oldest first. Files that
// fail to decode are logged and skipped.
func (s *Store) List() ([]Header, error) {
	var headers []Header
	err := filepath.WalkDir(s.dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == s.dir && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".snap") {
			return nil
		}
		header, err := s.readHeader(path)
		if err != nil {
			s.logger.Warn("skipping unreadable snapshot", "path", path, "error", err)
			return nil
		}
		headers = append(headers, header)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning snapshots in %s: %w", s.dir, err)
	}
	slices.SortFunc(headers, func(a, b Header) int {
		if order := a.CreatedAt.Compare(b.CreatedAt); order != 0 {
			return order
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return headers, nil
}

// Resolve finds the snapshot whose ID starts with prefix. The prefix is
// case-insensitive hex of at least four digits and must match exactly
// one snapshot.
func (s *Store) Resolve(prefix string) (ID, error) {
	prefix = strings.ToLower(prefix)
	if len(prefix) < minPrefixLength {
		return ID{}, fmt.Errorf("snapshot id prefix %q is shorter than %d digits", prefix, minPrefixLength)
	}
	if id, err := ParseID(prefix); err == nil {
		return id, nil
	}
	headers, err := s.List()
	if err != nil {
		return ID{}, err
	}
	var matches []ID
	for _, header := range headers {
		if strings.HasPrefix(header.ID.String(), prefix) {
			matches = append(matches, header.ID)
		}
	}
	switch len(matches) {
	case 0:
		return ID{}, fmt.Errorf("%w: no snapshot id starts with %q", ErrNotFound, prefix)
	case 1:
		return matches[0], nil
	default:
		return ID{}, fmt.Errorf("snapshot id prefix %q is ambiguous (%d matches)", prefix, len(matches))
	}
}

// Latest returns the newest snapshot of project.
func (s *Store) Latest(project string) (Header, error) {
	headers, err := s.List()
	if err != nil {
		return Header{}, err
	}
	for _, header := range slices.Backward(headers) {
		if header.Project == project {
			return header, nil
		}
	}
	return Header{}, fmt.Errorf("%w: no snapshot of project %s", ErrNotFound, project)
}

func (s *Store) path(id ID) string {
	name := id.String()
	return filepath.Join(s.dir, name[:2], name+".snap")
}

func (s *Store) readHeader(path string) (Header, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Header{}, err
	}
	header, _, err := decodeHeader(data)
	return header, err
}

// writeFile atomically writes a snapshot file.
func (s *Store) writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating snapshot shard directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".snap-*")
	if err != nil {
		return fmt.Errorf("creating temp snapshot file: %w", err)
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
		return fmt.Errorf("writing snapshot data: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("syncing snapshot file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp snapshot file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming snapshot file: %w", err)
	}

	success = true
	return nil
}
