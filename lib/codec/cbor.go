// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"io"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Reject duplicate map keys: a store file with two entries for
		// the same key has been tampered with or corrupted.
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes value using Core Deterministic Encoding.
func Marshal(value any) ([]byte, error) {
	return encMode.Marshal(value)
}

// Unmarshal decodes CBOR data into value.
func Unmarshal(data []byte, value any) error {
	return decMode.Unmarshal(data, value)
}

// NewEncoder returns a deterministic CBOR encoder writing to writer.
func NewEncoder(writer io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(writer)
}

// NewDecoder returns a CBOR decoder reading from reader.
func NewDecoder(reader io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(reader)
}
