package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/tidwall/jsonc"
)

// Encoding selects the serialization of a document.
type Encoding string

const (
	JSON Encoding = "json"
	CBOR Encoding = "cbor"
)

// Compression selects an optional compression layer.
type Compression string

const (
	None Compression = "none"
	Zstd Compression = "zstd"
)

// ParseEncoding parses an encoding name. The empty string selects JSON.
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(strings.ToLower(strings.TrimSpace(s))) {
	case "", JSON:
		return JSON, nil
	case CBOR:
		return CBOR, nil
	default:
		return "", fmt.Errorf("unknown metadata encoding: %q", s)
	}
}

// ParseCompression parses a compression name. The empty string selects None.
func ParseCompression(s string) (Compression, error) {
	switch Compression(strings.ToLower(strings.TrimSpace(s))) {
	case "", None:
		return None, nil
	case Zstd:
		return Zstd, nil
	default:
		return "", fmt.Errorf("unknown metadata compression: %q", s)
	}
}

// Filename returns the conventional file name for a document.
func Filename(enc Encoding, comp Compression) string {
	name := "metadata." + string(enc)
	if comp == Zstd {
		name += ".zst"
	}
	return name
}

// encMode produces Core Deterministic CBOR: the same document always
// encodes to the same bytes.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("metadata: CBOR encoder initialization failed: " + err.Error())
	}
}

// MarshalCBOR encodes the document as deterministic CBOR.
func (d *Document) MarshalCBOR() ([]byte, error) {
	// Alias drops the method set so encMode does not recurse into MarshalCBOR
	type plain Document
	return encMode.Marshal((*plain)(d))
}

// UnmarshalCBOR decodes a CBOR document.
func (d *Document) UnmarshalCBOR(data []byte) error {
	type plain Document
	return cbor.Unmarshal(data, (*plain)(d))
}

// Encode writes the document to w.
func (d *Document) Encode(w io.Writer, enc Encoding, comp Compression) error {
	var data []byte
	var err error

	switch enc {
	case JSON, "":
		data, err = json.MarshalIndent(d, "", "  ")
	case CBOR:
		data, err = d.MarshalCBOR()
	default:
		return fmt.Errorf("unknown metadata encoding: %q", enc)
	}
	if err != nil {
		return fmt.Errorf("failed to serialize metadata: %w", err)
	}

	switch comp {
	case None, "":
		_, err = w.Write(data)
		return err
	case Zstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return fmt.Errorf("failed to create zstd writer: %w", err)
		}
		if _, err := zw.Write(data); err != nil {
			zw.Close()
			return fmt.Errorf("failed to compress metadata: %w", err)
		}
		return zw.Close()
	default:
		return fmt.Errorf("unknown metadata compression: %q", comp)
	}
}

// Decode reads a document written by Encode.
func Decode(r io.Reader, enc Encoding, comp Compression) (*Document, error) {
	if comp == Zstd {
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var doc Document
	switch enc {
	case CBOR:
		err = doc.UnmarshalCBOR(data)
	default:
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, &ParseError{Message: err.Error()}
	}
	return &doc, nil
}

// ParsePages parses a JSON array of pages. Comments and trailing commas
// are accepted.
func ParsePages(data []byte) ([]PageInfo, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))

	var pages []PageInfo
	if err := dec.Decode(&pages); err != nil {
		return nil, &ParseError{Message: err.Error()}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &ParseError{Message: "unexpected data after pages array"}
	}
	if pages == nil {
		pages = []PageInfo{}
	}
	return pages, nil
}
