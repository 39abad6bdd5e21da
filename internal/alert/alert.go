// Package alert watches incoming contracts for configured figures of
// interest and records an alert whenever one appears on either side of
// a contract.
package alert

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vigilpt/vigil/internal/match"
	"github.com/vigilpt/vigil/internal/model"
)

// Kind is the alert priority class
type Kind string

const (
	KindHighValue Kind = "high_value" // Value above the high-value line
	KindNormal    Kind = "normal"
)

// highValueLine marks contracts worth an immediate look
var highValueLine = decimal.NewFromInt(500000)

// Role is the side of the contract the watched figure appeared on
type Role string

const (
	RoleAuthority  Role = "authority"
	RoleContractor Role = "contractor"
)

// WatchEntry is one figure of interest
type WatchEntry struct {
	Name   string `json:"name"`
	TaxID  string `json:"tax_id,omitempty"`
	Active bool   `json:"active"`
}

// Alert records one watched figure appearing in one contract
type Alert struct {
	ID         string    `json:"id"`
	WatchName  string    `json:"watch_name"`
	ContractID string    `json:"contract_id"`
	Roles      []Role    `json:"roles"`
	Kind       Kind      `json:"kind"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
	Read       bool      `json:"read"`
}

// Manager holds the watchlist and the alerts it has produced
type Manager struct {
	mu      sync.RWMutex
	watches []WatchEntry
	alerts  []Alert
	now     func() time.Time
}

// NewManager creates an empty alert manager
func NewManager() *Manager {
	return &Manager{now: time.Now}
}

// Watch adds a figure of interest. Duplicate names update the existing
// entry instead of growing the list.
func (m *Manager) Watch(entry WatchEntry) error {
	if strings.TrimSpace(entry.Name) == "" {
		return fmt.Errorf("watch entry needs a name")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := match.Normalize(entry.Name)
	for i, w := range m.watches {
		if match.Normalize(w.Name) == key {
			m.watches[i] = entry
			return nil
		}
	}
	m.watches = append(m.watches, entry)
	return nil
}

// Watches returns the current watchlist
func (m *Manager) Watches() []WatchEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]WatchEntry, len(m.watches))
	copy(out, m.watches)
	return out
}

// Evaluate inspects a batch of contracts against every active watch
// entry and records the resulting alerts. It returns the new alerts.
func (m *Manager) Evaluate(contracts []model.Contract) []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	var created []Alert
	for _, c := range contracts {
		for _, w := range m.watches {
			if !w.Active {
				continue
			}
			roles := rolesFor(w, c)
			if len(roles) == 0 {
				continue
			}
			a := Alert{
				ID:         uuid.NewString(),
				WatchName:  w.Name,
				ContractID: c.ID,
				Roles:      roles,
				Kind:       kindFor(c),
				Message:    message(w, c, roles),
				CreatedAt:  m.now().UTC(),
			}
			created = append(created, a)
		}
	}
	m.alerts = append(m.alerts, created...)
	return created
}

func rolesFor(w WatchEntry, c model.Contract) []Role {
	var roles []Role
	if partyMatches(w, c.Authority) {
		roles = append(roles, RoleAuthority)
	}
	if partyMatches(w, c.Contractor) {
		roles = append(roles, RoleContractor)
	}
	return roles
}

func partyMatches(w WatchEntry, p model.Party) bool {
	if w.TaxID != "" && p.TaxID != "" && w.TaxID == p.TaxID {
		return true
	}
	return match.Contains(p.Name, w.Name)
}

func kindFor(c model.Contract) Kind {
	if c.Value.GreaterThan(highValueLine) {
		return KindHighValue
	}
	return KindNormal
}

func message(w WatchEntry, c model.Contract, roles []Role) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return fmt.Sprintf("contract %s involves %s as %s: %s → %s, %s EUR",
		c.ID, w.Name, strings.Join(parts, " and "),
		c.Authority.Name, c.Contractor.Name, c.Value)
}

// Unread lists pending alerts, newest first
func (m *Manager) Unread() []Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Alert
	for _, a := range m.alerts {
		if !a.Read {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// MarkRead marks one alert as handled
func (m *Manager) MarkRead(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.alerts {
		if m.alerts[i].ID == id {
			m.alerts[i].Read = true
			return true
		}
	}
	return false
}

// MarkAllRead marks every pending alert as handled and reports how many
func (m *Manager) MarkAllRead() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for i := range m.alerts {
		if !m.alerts[i].Read {
			m.alerts[i].Read = true
			count++
		}
	}
	return count
}

// Stats summarizes alert volume by kind
type Stats struct {
	Total  int          `json:"total"`
	Unread int          `json:"unread"`
	ByKind map[Kind]int `json:"by_kind"`
}

// Summary computes alert statistics
func (m *Manager) Summary() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Stats{ByKind: make(map[Kind]int)}
	for _, a := range m.alerts {
		s.Total++
		if !a.Read {
			s.Unread++
		}
		s.ByKind[a.Kind]++
	}
	return s
}
