// Package stackfile reads and writes stack documents as YAML (or JSON, by
// file extension).
package stackfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/phanxgames/cardstack"
)

// ErrNotStack is returned when a document's root is not a stack entity.
var ErrNotStack = errors.New("stackfile: root is not a stack")

// Decode parses a YAML (or JSON, which is valid YAML) stack document into a
// detached entity tree.
func Decode(r io.Reader) (*cardstack.Entity, error) {
	var d cardstack.EntityData
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("stackfile: decode: %w", err)
	}
	root, err := cardstack.FromData(d)
	if err != nil {
		return nil, fmt.Errorf("stackfile: %w", err)
	}
	if root.Kind() != cardstack.KindStack {
		return nil, fmt.Errorf("%w (got %s)", ErrNotStack, root.Kind())
	}
	return root, nil
}

// Encode writes root as YAML.
func Encode(w io.Writer, root *cardstack.Entity) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(root.Data()); err != nil {
		return fmt.Errorf("stackfile: encode: %w", err)
	}
	return enc.Close()
}

// Load reads a stack document from path.
func Load(path string) (*cardstack.Entity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Save writes root to path, as JSON for a .json extension and YAML
// otherwise. The file is replaced atomically.
func Save(path string, root *cardstack.Entity) error {
	var buf bytes.Buffer
	if strings.EqualFold(filepath.Ext(path), ".json") {
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(root.Data()); err != nil {
			return fmt.Errorf("stackfile: encode: %w", err)
		}
	} else if err := Encode(&buf, root); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".stackfile-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
