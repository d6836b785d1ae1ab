// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/tidwall/jsonc"
)

var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// zstdDecoder is shared across calls; DecodeAll is safe for
// concurrent use.
var zstdDecoder *zstd.Decoder

func init() {
	var err error
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("graph: zstd decoder initialization failed: " + err.Error())
	}
}

// Parse decodes a snapshot from data. The document is JSON extended
// with comments and trailing commas, optionally wrapped in a zstd or
// LZ4 frame (detected by magic number, not file name).
func Parse(data []byte) (*Snapshot, error) {
	plain, err := decompress(data)
	if err != nil {
		return nil, err
	}

	var snapshot Snapshot
	if err := json.Unmarshal(jsonc.ToJSON(plain), &snapshot); err != nil {
		return nil, fmt.Errorf("graph: parsing snapshot: %w", err)
	}
	for position, node := range snapshot.Nodes {
		if node.ID == "" {
			return nil, fmt.Errorf("graph: node %d has no id", position)
		}
	}
	return &snapshot, nil
}

// ReadFile reads and parses a snapshot file.
func ReadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("graph: reading %s: %w", path, err)
	}
	snapshot, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return snapshot, nil
}

func decompress(data []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(data, zstdMagic):
		plain, err := zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("graph: zstd decompress: %w", err)
		}
		return plain, nil
	case bytes.HasPrefix(data, lz4Magic):
		plain, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, fmt.Errorf("graph: lz4 decompress: %w", err)
		}
		return plain, nil
	default:
		return data, nil
	}
}
