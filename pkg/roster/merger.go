package roster

// Roster is the list of users returned by one media server for one run.
type Roster struct {
	// Server is the configured media server name.
	Server string

	// Users are the records the server reported.
	Users []SourceUser
}

// Merger folds per-server rosters into a canonical user mapping keyed by
// case-normalized username. Rosters are processed in the order given, so
// first-non-empty field resolution follows server configuration order.
// Merging is idempotent and associative: feeding a merged result back in
// changes nothing.
type Merger struct {
	users map[string]*CanonicalUser
	order []string
}

// NewMerger creates an empty Merger.
func NewMerger() *Merger {
	return &Merger{
		users: make(map[string]*CanonicalUser),
	}
}

// Merge folds an ordered sequence of rosters into a canonical user mapping.
func Merge(rosters []Roster) map[string]*CanonicalUser {
	m := NewMerger()
	for _, r := range rosters {
		m.Add(r.Users)
	}
	return m.Users()
}

// Add folds one roster into the accumulated mapping.
func (m *Merger) Add(users []SourceUser) {
	for i := range users {
		m.addUser(&users[i])
	}
}

// addUser merges one source record under its case-normalized key.
func (m *Merger) addUser(u *SourceUser) {
	key := Key(u.Username)
	if key == "" {
		return
	}

	existing, ok := m.users[key]
	if !ok {
		m.users[key] = &CanonicalUser{
			Username:       u.Username,
			Email:          u.Email,
			SourceServers:  appendUnique(nil, u.SourceServer),
			SourceTypes:    appendUnique(nil, u.SourceType),
			PasswordSuffix: u.PasswordSuffix,
			RequestLimit:   u.RequestLimit,
		}
		m.order = append(m.order, key)
		return
	}

	// First-non-empty wins; earlier servers take precedence.
	if existing.Email == "" && u.Email != "" {
		existing.Email = u.Email
	}
	if existing.PasswordSuffix == "" && u.PasswordSuffix != "" {
		existing.PasswordSuffix = u.PasswordSuffix
	}
	if existing.RequestLimit == nil && u.RequestLimit != nil {
		existing.RequestLimit = u.RequestLimit
	}
	existing.SourceServers = appendUnique(existing.SourceServers, u.SourceServer)
	existing.SourceTypes = appendUnique(existing.SourceTypes, u.SourceType)
}

// Users returns the accumulated canonical mapping.
func (m *Merger) Users() map[string]*CanonicalUser {
	return m.users
}

// User returns the canonical user for a key, if present.
func (m *Merger) User(key string) (*CanonicalUser, bool) {
	u, ok := m.users[key]
	return u, ok
}

// Keys returns the canonical keys in first-seen order.
func (m *Merger) Keys() []string {
	keys := make([]string, len(m.order))
	copy(keys, m.order)
	return keys
}

// Len returns the number of canonical users accumulated so far.
func (m *Merger) Len() int {
	return len(m.users)
}

// appendUnique appends s to list if non-empty and not already present,
// preserving insertion order.
func appendUnique(list []string, s string) []string {
	if s == "" {
		return list
	}
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
