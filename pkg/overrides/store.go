// Package overrides persists per-user manual flags and last-known media
// server membership between sync runs. The store is read at the start of a
// run and written back at the end only when something actually changed.
package overrides

import (
	"os"
	"sync"

	"github.com/goccy/go-yaml"

	"github.com/seerrsync/seerrsync/pkg/errors"
	"github.com/seerrsync/seerrsync/pkg/roster"
)

// filePermissions for the override store file.
const filePermissions = 0o644

// Record holds the manual flags and protection data for one user, keyed by
// case-normalized username.
type Record struct {
	// Blocked excludes the user from creation and actively removes the
	// account from the request service even if present in sources.
	Blocked bool `yaml:"blocked,omitempty"`

	// Immune prevents removal regardless of source membership.
	Immune bool `yaml:"immune,omitempty"`

	// SourceServers is the set of media server names last known to
	// contain this user, used to protect against false removal while a
	// source is unreachable.
	SourceServers []string `yaml:"source_servers,omitempty"`
}

// empty reports whether the record holds no meaningful field.
func (r *Record) empty() bool {
	return !r.Blocked && !r.Immune && len(r.SourceServers) == 0
}

// Store is the persisted mapping from case-normalized username to Record.
// Absence of a username means all flags default to false/unset.
type Store struct {
	mu      sync.RWMutex
	path    string
	records map[string]*Record
	changed bool
}

// Load reads the override store from path. A missing file yields an empty
// store; a malformed file is a parse error.
func Load(path string) (*Store, error) {
	s := &Store{
		path:    path,
		records: make(map[string]*Record),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, errors.WrapIO("read", path, err)
	}

	if err := yaml.Unmarshal(data, &s.records); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	if s.records == nil {
		s.records = make(map[string]*Record)
	}

	return s, nil
}

// Path returns the file path backing the store.
func (s *Store) Path() string {
	return s.path
}

// Get returns a copy of the record for username, or a zero record when the
// username has no overrides.
func (s *Store) Get(username string) Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.records[roster.Key(username)]; ok {
		return *r
	}
	return Record{}
}

// Usernames returns all case-normalized usernames with a record.
func (s *Store) Usernames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.records))
	for name := range s.records {
		names = append(names, name)
	}
	return names
}

// SetBlocked sets the blocked flag for username.
func (s *Store) SetBlocked(username string, blocked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := roster.Key(username)
	r := s.records[key]
	if r == nil {
		if !blocked {
			return
		}
		r = &Record{}
		s.records[key] = r
	}
	if r.Blocked != blocked {
		r.Blocked = blocked
		s.changed = true
	}
	s.gc(key)
}

// SetImmune sets the immune flag for username.
func (s *Store) SetImmune(username string, immune bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := roster.Key(username)
	r := s.records[key]
	if r == nil {
		if !immune {
			return
		}
		r = &Record{}
		s.records[key] = r
	}
	if r.Immune != immune {
		r.Immune = immune
		s.changed = true
	}
	s.gc(key)
}

// SetSourceServers records the media servers observed to contain username
// this run. The record is only marked changed when the set differs.
func (s *Store) SetSourceServers(username string, servers []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := roster.Key(username)
	r := s.records[key]
	if r == nil {
		if len(servers) == 0 {
			return
		}
		r = &Record{}
		s.records[key] = r
	}

	if !sameSet(r.SourceServers, servers) {
		r.SourceServers = append([]string(nil), servers...)
		s.changed = true
	}
	s.gc(key)
}

// ClearSourceServers deletes the source-server field for username once the
// user has been fully removed from the request service, so stale protection
// data does not linger. The whole record is dropped when nothing remains.
func (s *Store) ClearSourceServers(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := roster.Key(username)
	r := s.records[key]
	if r == nil || len(r.SourceServers) == 0 {
		return
	}
	r.SourceServers = nil
	s.changed = true
	s.gc(key)
}

// Changed reports whether any record differs from what was loaded.
func (s *Store) Changed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.changed
}

// Save writes the store back to disk if anything changed. The write is a
// whole-file replace; a failure leaves the previous file intact.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.changed {
		return nil
	}

	data, err := yaml.Marshal(s.records)
	if err != nil {
		return errors.WrapPersist(s.path, err)
	}

	if err := os.WriteFile(s.path, data, filePermissions); err != nil {
		return errors.WrapPersist(s.path, err)
	}

	s.changed = false
	return nil
}

// gc drops the record for key once it holds no meaningful field.
// Callers must hold the write lock.
func (s *Store) gc(key string) {
	if r, ok := s.records[key]; ok && r.empty() {
		delete(s.records, key)
	}
}

// sameSet compares two string slices as sets.
func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]struct{}, len(a))
	for _, s := range a {
		seen[s] = struct{}{}
	}
	for _, s := range b {
		if _, ok := seen[s]; !ok {
			return false
		}
	}
	return true
}
