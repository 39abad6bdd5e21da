package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vigilpt/vigil/internal/match"
	"github.com/vigilpt/vigil/internal/model"
)

// snapshot is the on-disk form of the registry
type snapshot struct {
	Persons      []model.Person      `json:"persons"`
	Companies    []model.Company     `json:"companies"`
	Associations []model.Association `json:"associations"`
}

// Save writes the registry as a JSON snapshot. The write goes through a
// temp file and rename so a crash never leaves a torn snapshot behind.
func (r *Registry) Save(path string) error {
	r.mu.RLock()
	snap := snapshot{
		Persons:      make([]model.Person, 0, len(r.persons)),
		Companies:    make([]model.Company, 0, len(r.companies)),
		Associations: make([]model.Association, len(r.associations)),
	}
	for _, p := range r.persons {
		snap.Persons = append(snap.Persons, p)
	}
	for _, c := range r.companies {
		snap.Companies = append(snap.Companies, c)
	}
	copy(snap.Associations, r.associations)
	r.mu.RUnlock()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create registry dir: %w", err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write registry: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace registry: %w", err)
	}
	return nil
}

// Load replaces the registry contents with a JSON snapshot. A missing file
// is not an error — the registry simply starts empty.
func (r *Registry) Load(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read registry: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parse registry: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.persons = make(map[string]model.Person, len(snap.Persons))
	for _, p := range snap.Persons {
		r.persons[match.Normalize(p.Name)] = p
	}
	r.companies = make(map[string]model.Company, len(snap.Companies))
	for _, c := range snap.Companies {
		r.companies[match.Normalize(c.Name)] = c
	}
	r.associations = snap.Associations
	r.version++
	return nil
}
