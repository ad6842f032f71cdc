// Package inject rewrites the placeholder in a built worker script with the
// list of files to pre-cache, taken from the build's asset manifest.
package inject

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
)

// Placeholder marks where the pre-cache list goes. It must appear exactly once.
const Placeholder = "/* sw-injection-point */"

var (
	ErrManifestInvalid       = errors.New("inject: manifest is invalid")
	ErrPlaceholderMissing    = errors.New("inject: placeholder not found (already injected?)")
	ErrPlaceholderDuplicated = errors.New("inject: placeholder appears more than once")
)

// File is one entry of the manifest's "files" object.
type File struct {
	Name string // logical name, e.g. "main.js"
	Path string // served path, e.g. "/static/js/main.abc123.js"
}

// Manifest is the part of asset-manifest.json the injector reads. Files keep
// the order they have in the document.
type Manifest struct {
	Files       []File
	Entrypoints []string
}

// ParseManifest parses manifest JSON.
func ParseManifest(b []byte) (*Manifest, error) {
	if !gjson.ValidBytes(b) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrManifestInvalid)
	}
	files := gjson.GetBytes(b, "files")
	if !files.IsObject() {
		return nil, fmt.Errorf("%w: missing \"files\" object", ErrManifestInvalid)
	}

	m := &Manifest{}
	var bad string
	files.ForEach(func(k, v gjson.Result) bool {
		if v.Type != gjson.String {
			bad = k.String()
			return false
		}
		m.Files = append(m.Files, File{Name: k.String(), Path: v.String()})
		return true
	})
	if bad != "" {
		return nil, fmt.Errorf("%w: files[%q] is not a string", ErrManifestInvalid, bad)
	}
	for _, e := range gjson.GetBytes(b, "entrypoints").Array() {
		m.Entrypoints = append(m.Entrypoints, e.String())
	}
	return m, nil
}

// ReadManifest reads and parses the manifest at path.
func ReadManifest(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	m, err := ParseManifest(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// CacheableFiles returns the manifest paths to pre-cache: document order,
// source maps excluded, first occurrence of a path wins.
func CacheableFiles(m *Manifest) []string {
	out := make([]string, 0, len(m.Files))
	seen := make(map[string]struct{}, len(m.Files))
	for _, f := range m.Files {
		if strings.HasSuffix(f.Path, ".map") {
			continue
		}
		if _, dup := seen[f.Path]; dup {
			continue
		}
		seen[f.Path] = struct{}{}
		out = append(out, f.Path)
	}
	return out
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// FormatList renders files as a comma-separated list of single-quoted
// literals: '/a.js', '/b.css'
func FormatList(files []string) string {
	var sb strings.Builder
	for i, f := range files {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('\'')
		sb.WriteString(quoteEscaper.Replace(f))
		sb.WriteByte('\'')
	}
	return sb.String()
}

// Inject replaces the single placeholder in src with list.
func Inject(src []byte, list string) ([]byte, error) {
	switch n := bytes.Count(src, []byte(Placeholder)); {
	case n == 0:
		return nil, ErrPlaceholderMissing
	case n > 1:
		return nil, fmt.Errorf("%w (%d times)", ErrPlaceholderDuplicated, n)
	}
	return bytes.Replace(src, []byte(Placeholder), []byte(list), 1), nil
}

// Result describes a completed injection.
type Result struct {
	WorkerPath string
	Files      []string
}

// InjectFile injects the manifest's cacheable files into the worker script
// in place. Nothing is written unless every step before the write succeeded.
func InjectFile(manifestPath, workerPath string) (Result, error) {
	m, err := ReadManifest(manifestPath)
	if err != nil {
		return Result{}, err
	}
	src, err := os.ReadFile(workerPath)
	if err != nil {
		return Result{}, fmt.Errorf("read worker %s: %w", workerPath, err)
	}
	files := CacheableFiles(m)
	out, err := Inject(src, FormatList(files))
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", workerPath, err)
	}
	if err := writeFileAtomic(workerPath, out); err != nil {
		return Result{}, fmt.Errorf("write worker %s: %w", workerPath, err)
	}
	return Result{WorkerPath: workerPath, Files: files}, nil
}

// writeFileAtomic replaces path through a temp file in the same directory so
// readers never see a half-written script.
func writeFileAtomic(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	cleanup := func() { _ = os.Remove(name) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(name, path); err != nil {
		cleanup()
		return err
	}
	return nil
}
