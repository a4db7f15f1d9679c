// Package profile loads the named server profiles the CLI can point at.
package profile

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile is one server the client knows how to reach.
type Profile struct {
	Name  string `yaml:"name"`
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

type Store struct {
	byName map[string]*Profile
}

// Load parses a profiles file. Every entry needs a name and a URL; names must
// be unique.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles file: %w", err)
	}

	var entries []Profile
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse profiles file: %w", err)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("profiles file is empty")
	}

	store := &Store{byName: make(map[string]*Profile, len(entries))}
	for i := range entries {
		entry := entries[i]
		entry.Name = strings.TrimSpace(entry.Name)
		entry.URL = strings.TrimSpace(entry.URL)
		if entry.Name == "" {
			return nil, fmt.Errorf("profile at index %d has empty name", i)
		}
		if entry.URL == "" {
			return nil, fmt.Errorf("profile %q has empty url", entry.Name)
		}
		if _, exists := store.byName[entry.Name]; exists {
			return nil, fmt.Errorf("duplicate profile name %q", entry.Name)
		}
		entries[i] = entry
		store.byName[entry.Name] = &entries[i]
	}

	return store, nil
}

func (s *Store) Lookup(name string) (*Profile, bool) {
	if s == nil {
		return nil, false
	}
	p, ok := s.byName[name]
	return p, ok
}
