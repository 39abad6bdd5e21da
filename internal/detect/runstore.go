package detect

import "sync"

// RunStore keeps completed run results addressable by run id. Concurrent or
// repeated analyses (full set vs. filtered subset) each keep their own
// result; nothing is ever clobbered in place.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]*RunResult
}

// NewRunStore creates an empty run store
func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[string]*RunResult)}
}

// Put records a completed run
func (s *RunStore) Put(result *RunResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[result.RunID] = result
}

// Get returns the result for a run id
func (s *RunStore) Get(runID string) (*RunResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.runs[runID]
	return result, ok
}

// IDs returns the known run ids
func (s *RunStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.runs))
	for id := range s.runs {
		ids = append(ids, id)
	}
	return ids
}
