// Package codec encodes and decodes machine snapshots.
//
// Three formats are supported: the XML ".tm" layout used by the desktop
// simulator, YAML for hand-written machines, and JSON for stores and the
// HTTP API. Decoding errors wrap domain.ErrMalformedMachine.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/aretw0/turing/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Format names an encoding.
type Format string

const (
	FormatXML  Format = "tm"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ErrUnknownFormat is returned for unsupported extensions or format names.
var ErrUnknownFormat = errors.New("unknown machine format")

// ParseFormat accepts a format name or a bare extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "tm", "xml":
		return FormatXML, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatFromPath picks a format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", fmt.Errorf("%w: %q has no extension", ErrUnknownFormat, path)
	}
	return ParseFormat(ext)
}

// Decode reads one snapshot from r.
func Decode(format Format, r io.Reader) (*domain.Snapshot, error) {
	var (
		snap *domain.Snapshot
		err  error
	)
	switch format {
	case FormatXML:
		snap, err = decodeXML(r)
	case FormatYAML:
		snap = &domain.Snapshot{}
		err = yaml.NewDecoder(r).Decode(snap)
	case FormatJSON:
		snap = &domain.Snapshot{}
		err = json.NewDecoder(r).Decode(snap)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		if errors.Is(err, domain.ErrMalformedMachine) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedMachine, err)
	}
	return snap, nil
}

// Encode writes snap to w.
func Encode(format Format, w io.Writer, snap *domain.Snapshot) error {
	switch format {
	case FormatXML:
		return encodeXML(w, snap)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return err
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// Marshal encodes snap into a byte slice.
func Marshal(format Format, snap *domain.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(format, &buf, snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a snapshot from data.
func Unmarshal(format Format, data []byte) (*domain.Snapshot, error) {
	return Decode(format, bytes.NewReader(data))
}
