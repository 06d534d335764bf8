package bundle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mvp-joe/depgraph/internal/dump"
)

const (
	// ScriptVariable is the global the script copy assigns the bundle to.
	ScriptVariable = "window.EMBEDDED_BUNDLE_DATA"
	// ScriptExt is the extension of the script copy.
	ScriptExt = ".js"
)

// Encode marshals a bundle the way it is stored on disk.
func Encode(b *Bundle) ([]byte, error) {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bundle: %w", err)
	}
	return data, nil
}

// Write stores the bundle at path, creating parent directories, and returns
// the encoded bytes.
func Write(b *Bundle, path string) ([]byte, error) {
	data, err := Encode(b)
	if err != nil {
		return nil, err
	}
	if err := writeAtomic(path, data); err != nil {
		return nil, err
	}
	return data, nil
}

// Load reads a bundle written by Write.
func Load(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle: %w", err)
	}

	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse bundle JSON: %w", err)
	}
	if b.Modules == nil {
		b.Modules = make(map[string]*dump.Module)
	}
	return &b, nil
}

// WriteScript stores the encoded bundle as a script assigning it to ScriptVariable,
// for front ends loaded without a server.
func WriteScript(data []byte, path string) error {
	var buf bytes.Buffer
	buf.Grow(len(data) + len(ScriptVariable) + 8)
	buf.WriteString(ScriptVariable)
	buf.WriteString(" = ")
	buf.Write(data)
	buf.WriteString(";\n")
	return writeAtomic(path, buf.Bytes())
}

// DefaultScriptPath returns the script copy location next to a bundle.
func DefaultScriptPath(bundlePath string) string {
	return strings.TrimSuffix(bundlePath, filepath.Ext(bundlePath)) + ScriptExt
}

// writeAtomic writes to a temp file in the target directory, then renames it.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tempPath := filepath.Join(dir, "."+filepath.Base(path)+".tmp")
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}
