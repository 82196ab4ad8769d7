// SPDX-License-Identifier: MPL-2.0

// Package registry handles finding and loading layer files from the
// configured search paths.
package registry

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/suddenlysixam/rpi-image-gen/internal/metadata"
)

// DefaultPatterns are the filename globs considered during discovery.
var DefaultPatterns = []string{"*.yaml", "*.yml"}

// NameCollisionError is returned when two files declare the same layer name.
type NameCollisionError struct {
	Name         string
	FirstSource  string
	SecondSource string
}

// Error implements the error interface.
func (e *NameCollisionError) Error() string {
	return fmt.Sprintf(
		"layer name collision: '%s' defined in both:\n"+
			"  - %s\n"+
			"  - %s\n\n"+
			"Rename one of the layers to disambiguate",
		e.Name, e.FirstSource, e.SecondSource)
}

// Entry is one discovered layer file with its parsed metadata.
type Entry struct {
	// Path is the absolute path to the layer file
	Path string
	// File is the parsed metadata (nil when parsing failed)
	File *metadata.File
	// Err records the parse failure, if any
	Err error
}

// Name returns the layer name, or "" for files without a layer identity.
func (e *Entry) Name() string {
	if e.File == nil || e.File.Layer == nil {
		return ""
	}
	return e.File.Layer.Name
}

// Registry indexes discovered layers by name. Files that fail to parse
// stay visible through Broken so batch validation can report all of them.
type Registry struct {
	entries map[string]*Entry
	order   []string
	broken  []*Entry
}

// Discover walks the given search roots, parses every file matching the
// patterns, and indexes layers by name. A parse failure in one file does
// not abort discovery; a duplicate layer name does.
func Discover(roots []string, patterns []string) (*Registry, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	r := &Registry{entries: map[string]*Entry{}}
	for _, root := range roots {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		if _, err := os.Stat(absRoot); os.IsNotExist(err) {
			log.Debug("search path does not exist, skipping", "path", absRoot)
			continue
		}

		err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			if !matchesAny(d.Name(), patterns) {
				return nil
			}
			return r.add(path)
		})
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

func matchesAny(name string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, name); ok {
			return ok
		}
	}
	return false
}

func (r *Registry) add(path string) error {
	entry := &Entry{Path: path}
	f, err := metadata.ParseFile(path)
	if err != nil {
		log.Debug("layer file failed to parse", "path", path, "err", err)
		entry.Err = err
		r.broken = append(r.broken, entry)
		return nil
	}
	entry.File = f
	if f.Layer == nil {
		log.Debug("file has no layer identity, skipping", "path", path)
		return nil
	}

	name := f.Layer.Name
	if prev, exists := r.entries[name]; exists {
		return &NameCollisionError{Name: name, FirstSource: prev.Path, SecondSource: path}
	}
	r.entries[name] = entry
	r.order = append(r.order, name)
	log.Debug("discovered layer", "name", name, "path", path)
	return nil
}

// Get returns the entry for a layer name.
func (r *Registry) Get(name string) (*Entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// Names returns all layer names in discovery order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of indexed layers.
func (r *Registry) Len() int { return len(r.order) }

// Broken returns the entries that failed to parse, for batch reporting.
func (r *Registry) Broken() []*Entry {
	out := make([]*Entry, len(r.broken))
	copy(out, r.broken)
	return out
}

// Providers maps each provided capability to the layers providing it,
// names sorted for stable diagnostics.
func (r *Registry) Providers() map[string][]string {
	idx := map[string][]string{}
	for _, name := range r.order {
		e := r.entries[name]
		for _, capability := range e.File.Layer.Provides {
			idx[capability] = append(idx[capability], name)
		}
	}
	for _, names := range idx {
		sort.Strings(names)
	}
	return idx
}

// ByCategory groups layer names by their category, "" for uncategorized.
// Names within a category keep discovery order.
func (r *Registry) ByCategory() map[string][]string {
	out := map[string][]string{}
	for _, name := range r.order {
		e := r.entries[name]
		out[e.File.Layer.Category] = append(out[e.File.Layer.Category], name)
	}
	return out
}
