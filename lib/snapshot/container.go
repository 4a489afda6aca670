// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/bureau-foundation/hwid/lib/codec"
)

// magic opens every snapshot file. The trailing digit is the container
// version.
var magic = []byte("HWIDSNP1")

// maxHeaderLength bounds the CBOR header so a corrupt length field
// cannot trigger a huge allocation.
const maxHeaderLength = 64 << 10

// ErrCorrupt reports a snapshot file that does not decode or whose
// content does not match its header.
var ErrCorrupt = errors.New("corrupt snapshot")

// Header describes one snapshot. It is stored CBOR-encoded at the
// front of the snapshot file.
type Header struct {
	ID          ID          `cbor:"hash"`
	Project     string      `cbor:"project"`
	Checksum    string      `cbor:"checksum"`
	Compression Compression `cbor:"compression"`
	Size        int         `cbor:"size"`
	CreatedAt   time.Time   `cbor:"created_at"`
	Note        string      `cbor:"note,omitempty"`
}

// Snapshot is a decoded snapshot: its header and the document text.
type Snapshot struct {
	Header
	Document []byte
}

// encodeContainer builds the file bytes for header and the already
// compressed payload.
func encodeContainer(header Header, payload []byte) ([]byte, error) {
	headerBytes, err := codec.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot header: %w", err)
	}
	var buffer bytes.Buffer
	buffer.Grow(len(magic) + 4 + len(headerBytes) + len(payload))
	buffer.Write(magic)
	buffer.Write(binary.BigEndian.AppendUint32(nil, uint32(len(headerBytes))))
	buffer.Write(headerBytes)
	buffer.Write(payload)
	return buffer.Bytes(), nil
}

// decodeHeader parses the header of a snapshot file and returns it with
// the remaining payload bytes.
func decodeHeader(data []byte) (Header, []byte, error) {
	if !bytes.HasPrefix(data, magic) {
		return Header{}, nil, fmt.Errorf("%w: missing magic", ErrCorrupt)
	}
	rest := data[len(magic):]
	if len(rest) < 4 {
		return Header{}, nil, fmt.Errorf("%w: truncated header length", ErrCorrupt)
	}
	length := binary.BigEndian.Uint32(rest)
	rest = rest[4:]
	if length > maxHeaderLength || int(length) > len(rest) {
		return Header{}, nil, fmt.Errorf("%w: header length %d exceeds file", ErrCorrupt, length)
	}
	var header Header
	if err := codec.Unmarshal(rest[:length], &header); err != nil {
		return Header{}, nil, fmt.Errorf("%w: decoding header: %v", ErrCorrupt, err)
	}
	return header, rest[length:], nil
}

// decodeContainer parses a whole snapshot file and verifies the
// document against the header.
func decodeContainer(data []byte) (Snapshot, error) {
	header, payload, err := decodeHeader(data)
	if err != nil {
		return Snapshot{}, err
	}
	document, err := decompress(payload, header.Compression, header.Size)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if got := HashDocument(document); got != header.ID {
		return Snapshot{}, fmt.Errorf("%w: content hash %s does not match header %s", ErrCorrupt, got.Short(), header.ID.Short())
	}
	return Snapshot{Header: header, Document: document}, nil
}
