// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package flavor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Keys accepted in a flavor document.
const (
	keyName      = "name"
	keyMemoryGB  = "memory_gb"
	keyCPU       = "cpu"
	keyDiskGB    = "disk_gb"
	keyModel     = "model"
	keyBaseboard = "baseboard"
)

// Load all flavor specs from the top level of the given filesystem.
//
// Every regular file (or symlink to one) ending in .yaml or .yml is read.
// The first invalid document aborts the load; no partial result is returned.
// The returned specs are sorted by name.
func Load(fsys fs.FS) ([]Spec, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, &LoaderError{File: ".", Err: err}
	}
	var specs []Spec
	definedIn := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if !hasYAMLExtension(name) {
			continue
		}
		// Stat follows symlinks, so configmap mounts resolve to their target.
		info, err := fs.Stat(fsys, name)
		if err != nil {
			return nil, &LoaderError{File: name, Err: err}
		}
		if !info.Mode().IsRegular() {
			continue
		}
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, &LoaderError{File: name, Err: err}
		}
		spec, err := parseSpec(name, data)
		if err != nil {
			return nil, err
		}
		if other, ok := definedIn[spec.Name]; ok {
			return nil, &LoaderError{
				File:  name,
				Field: keyName,
				Err:   fmt.Errorf("%w: %q is already defined in %s", ErrDuplicateName, spec.Name, other),
			}
		}
		definedIn[spec.Name] = name
		slog.Debug("loaded flavor", "file", name, "flavor", spec.Name)
		specs = append(specs, spec)
	}
	slices.SortFunc(specs, func(a, b Spec) int { return strings.Compare(a.Name, b.Name) })
	warnIdentical(specs)
	return specs, nil
}

// Load all flavor specs from the given directory.
// File names in returned loader errors are prefixed with the directory.
func LoadDir(dir string) ([]Spec, error) {
	specs, err := Load(os.DirFS(dir))
	if err != nil {
		var loaderErr *LoaderError
		if errors.As(err, &loaderErr) {
			loaderErr.File = filepath.Join(dir, loaderErr.File)
		}
		return nil, err
	}
	slog.Info("loaded flavors", "dir", dir, "count", len(specs))
	return specs, nil
}

func hasYAMLExtension(name string) bool {
	ext := path.Ext(name)
	return ext == ".yaml" || ext == ".yml"
}

// Parse a single flavor document.
func parseSpec(file string, data []byte) (Spec, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Spec{}, &LoaderError{File: file, Err: ErrEmptyDocument}
		}
		return Spec{}, &LoaderError{File: file, Err: err}
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err == nil {
			err = ErrMultipleDocuments
		}
		return Spec{}, &LoaderError{File: file, Err: err}
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) == 1 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return Spec{}, &LoaderError{File: file, Err: fmt.Errorf("%w: expected a mapping at line %d", ErrInvalidValue, root.Line)}
	}

	p := specParser{file: file}
	seen := make(map[string]bool)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i].Value, root.Content[i+1]
		if seen[key] {
			return Spec{}, p.fail(key, fmt.Errorf("%w at line %d", ErrDuplicateKey, root.Content[i].Line))
		}
		seen[key] = true
		if err := p.field(key, value); err != nil {
			return Spec{}, err
		}
	}
	for _, key := range []string{keyName, keyMemoryGB, keyCPU, keyDiskGB} {
		if !seen[key] {
			return Spec{}, p.fail(key, ErrMissingField)
		}
	}
	return p.spec, nil
}

// Collects the fields of one flavor document.
type specParser struct {
	file string
	spec Spec
}

func (p *specParser) fail(field string, err error) *LoaderError {
	return &LoaderError{File: p.file, Field: field, Err: err}
}

func (p *specParser) field(key string, value *yaml.Node) error {
	switch key {
	case keyName:
		name, err := p.nonEmptyString(key, value)
		if err != nil {
			return err
		}
		p.spec.Name = name
	case keyCPU:
		cpu, err := p.nonEmptyString(key, value)
		if err != nil {
			return err
		}
		p.spec.CPU = cpu
	case keyMemoryGB:
		memoryGB, err := p.positiveInt(key, value)
		if err != nil {
			return err
		}
		p.spec.MemoryGB = memoryGB
	case keyDiskGB:
		diskGB, err := p.positiveInt(key, value)
		if err != nil {
			return err
		}
		p.spec.DiskGB = diskGB
	case keyModel:
		patterns, err := p.modelPatterns(value)
		if err != nil {
			return err
		}
		p.spec.ModelPatterns = patterns
	case keyBaseboard:
		overrides, err := p.baseboardOverrides(value)
		if err != nil {
			return err
		}
		p.spec.BaseboardOverrides = overrides
	default:
		return p.fail(key, ErrUnknownField)
	}
	return nil
}

func (p *specParser) nonEmptyString(field string, value *yaml.Node) (string, error) {
	if value.Kind != yaml.ScalarNode {
		return "", p.fail(field, fmt.Errorf("%w: expected a string at line %d", ErrInvalidValue, value.Line))
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return "", p.fail(field, err)
	}
	if strings.TrimSpace(s) == "" {
		return "", p.fail(field, fmt.Errorf("%w: must not be empty", ErrInvalidValue))
	}
	return s, nil
}

func (p *specParser) positiveInt(field string, value *yaml.Node) (int, error) {
	if value.Kind != yaml.ScalarNode || value.ShortTag() != "!!int" {
		return 0, p.fail(field, fmt.Errorf("%w: expected an integer at line %d, got %q", ErrInvalidValue, value.Line, value.Value))
	}
	var n int
	if err := value.Decode(&n); err != nil {
		return 0, p.fail(field, err)
	}
	if n <= 0 {
		return 0, p.fail(field, fmt.Errorf("%w: must be greater than zero, got %d", ErrInvalidValue, n))
	}
	return n, nil
}

// Model patterns are a list of substrings or the wildcard as a plain scalar.
func (p *specParser) modelPatterns(value *yaml.Node) ([]string, error) {
	if value.Kind == yaml.ScalarNode && value.Value == WildcardPattern {
		return []string{WildcardPattern}, nil
	}
	if value.Kind != yaml.SequenceNode {
		return nil, p.fail(keyModel, fmt.Errorf("%w: expected a list of strings at line %d", ErrInvalidValue, value.Line))
	}
	patterns := make([]string, 0, len(value.Content))
	for i, item := range value.Content {
		pattern, err := p.nonEmptyString(fmt.Sprintf("%s[%d]", keyModel, i), item)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, pattern)
	}
	return patterns, nil
}

// Overrides are kept in declaration order, which is why the mapping is
// walked by hand instead of being decoded into a map.
func (p *specParser) baseboardOverrides(value *yaml.Node) ([]BaseboardOverride, error) {
	if value.Kind != yaml.MappingNode {
		return nil, p.fail(keyBaseboard, fmt.Errorf("%w: expected a mapping at line %d", ErrInvalidValue, value.Line))
	}
	overrides := make([]BaseboardOverride, 0, len(value.Content)/2)
	seen := make(map[string]bool)
	for i := 0; i+1 < len(value.Content); i += 2 {
		keyNode, body := value.Content[i], value.Content[i+1]
		key, err := p.nonEmptyString(keyBaseboard, keyNode)
		if err != nil {
			return nil, err
		}
		field := keyBaseboard + "." + key
		if seen[key] {
			return nil, p.fail(field, fmt.Errorf("%w at line %d", ErrDuplicateKey, keyNode.Line))
		}
		seen[key] = true
		override, err := p.baseboardOverride(field, key, body)
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, override)
	}
	return overrides, nil
}

func (p *specParser) baseboardOverride(field, key string, body *yaml.Node) (BaseboardOverride, error) {
	override := BaseboardOverride{Key: key}
	if body.Kind != yaml.MappingNode {
		return override, p.fail(field, fmt.Errorf("%w: expected a mapping at line %d", ErrInvalidValue, body.Line))
	}
	seen := make(map[string]bool)
	for i := 0; i+1 < len(body.Content); i += 2 {
		name, value := body.Content[i].Value, body.Content[i+1]
		subfield := field + "." + name
		if seen[name] {
			return override, p.fail(subfield, fmt.Errorf("%w at line %d", ErrDuplicateKey, body.Content[i].Line))
		}
		seen[name] = true
		switch name {
		case keyMemoryGB:
			n, err := p.positiveInt(subfield, value)
			if err != nil {
				return override, err
			}
			override.MemoryGB = &n
		case keyDiskGB:
			n, err := p.positiveInt(subfield, value)
			if err != nil {
				return override, err
			}
			override.DiskGB = &n
		default:
			return override, p.fail(subfield, ErrUnknownField)
		}
	}
	if override.MemoryGB == nil && override.DiskGB == nil {
		return override, p.fail(field, fmt.Errorf("%w: override sets neither %s nor %s", ErrInvalidValue, keyMemoryGB, keyDiskGB))
	}
	if override.MemoryGB == nil {
		slog.Debug("baseboard override inherits memory", "file", p.file, "override", key)
	}
	if override.DiskGB == nil {
		slog.Debug("baseboard override inherits disk", "file", p.file, "override", key)
	}
	return override, nil
}

// Log a warning for flavors that cannot be told apart by any machine.
func warnIdentical(specs []Spec) {
	byKey := make(map[string]string, len(specs))
	for _, s := range specs {
		key := normalize(s)
		if other, ok := byKey[key]; ok {
			slog.Warn("flavors are semantically identical", "flavor", s.Name, "other", other)
			continue
		}
		byKey[key] = s.Name
	}
}

func normalize(s Spec) string {
	patterns := make([]string, 0, len(s.ModelPatterns))
	for _, pattern := range s.ModelPatterns {
		patterns = append(patterns, strings.ToLower(pattern))
	}
	slices.Sort(patterns)
	patterns = slices.Compact(patterns)
	if slices.Contains(patterns, WildcardPattern) {
		patterns = nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%d|%d|%s", s.CPU, s.MemoryGB, s.DiskGB, strings.Join(patterns, ","))
	for _, o := range s.BaseboardOverrides {
		memoryGB, diskGB := s.MemoryGB, s.DiskGB
		if o.MemoryGB != nil {
			memoryGB = *o.MemoryGB
		}
		if o.DiskGB != nil {
			diskGB = *o.DiskGB
		}
		fmt.Fprintf(&b, "|%s=%d/%d", strings.ToLower(o.Key), memoryGB, diskGB)
	}
	return b.String()
}
