// Package codec owns the byte format used to persist manifests. The core
// depends only on the Codec contract; the concrete formats live behind it.
package codec

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	merrors "github.com/gdoermann/manifestly/errors"
)

// FileEntry is the persisted form of one manifest entry.
type FileEntry struct {
	Hash string `json:"hash"           yaml:"hash"`
	Size int64  `json:"size"           yaml:"size"`
}

// Document is the persisted form of a manifest.
type Document struct {
	Root        string               `json:"root"         yaml:"root"`
	Algorithm   string               `json:"algorithm"    yaml:"algorithm"`
	GeneratedAt time.Time            `json:"generated_at" yaml:"generated_at"`
	Files       map[string]FileEntry `json:"files"        yaml:"files"`
}

// Codec serializes manifest documents to and from bytes.
type Codec interface {
	Marshal(doc *Document) ([]byte, error)
	Unmarshal(data []byte, doc *Document) error
	Name() string
}

// ByName returns the codec for a format name.
//
//nolint:ireturn // callers select the implementation by name at runtime.
func ByName(name string) (Codec, error) {
	switch name {
	case "json", "":
		return jsonCodec{}, nil
	case "yaml", "yml":
		return yamlCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", merrors.ErrUnsupportedFormat, name)
	}
}

type jsonCodec struct{}

func (jsonCodec) Marshal(doc *Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("codec: marshal json: %w", err)
	}
	return append(data, '\n'), nil
}

func (jsonCodec) Unmarshal(data []byte, doc *Document) error {
	if err := json.Unmarshal(data, doc); err != nil {
		return fmt.Errorf("%w: %v", merrors.ErrMalformedManifest, err)
	}
	return nil
}

func (jsonCodec) Name() string { return "json" }

type yamlCodec struct{}

func (yamlCodec) Marshal(doc *Document) ([]byte, error) {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("codec: marshal yaml: %w", err)
	}
	return data, nil
}

func (yamlCodec) Unmarshal(data []byte, doc *Document) error {
	if err := yaml.Unmarshal(data, doc); err != nil {
		return fmt.Errorf("%w: %v", merrors.ErrMalformedManifest, err)
	}
	return nil
}

func (yamlCodec) Name() string { return "yaml" }
