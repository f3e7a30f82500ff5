// Package syncer reconciles user rosters from media servers into a
// request service. A run probes every configured server, fetches and
// merges their rosters, creates missing accounts, removes accounts no
// longer backed by any server, and persists per-user override state.
package syncer

import (
	"context"
	"sync"

	"github.com/seerrsync/seerrsync/pkg/errors"
	"github.com/seerrsync/seerrsync/pkg/logging"
	"github.com/seerrsync/seerrsync/pkg/overrides"
	"github.com/seerrsync/seerrsync/pkg/roster"
)

// Directory lists the users of a single media server.
// mediaservers.Client satisfies this interface.
type Directory interface {
	Name() string
	HealthCheck(ctx context.Context) bool
	ListUsers(ctx context.Context) ([]roster.SourceUser, error)
}

// Account is a user account on the request service.
type Account struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// Gateway mutates accounts on the request service.
// seerr.Gateway satisfies this interface.
type Gateway interface {
	ListAccounts(ctx context.Context) ([]Account, error)
	CreateAccount(ctx context.Context, username, password string, permissions int) (Account, error)
	DeleteAccount(ctx context.Context, id int) error
	SetPassword(ctx context.Context, id int, password string) error
	SetRequestLimit(ctx context.Context, id int, movieLimit, tvLimit *int) error
}

// Syncer runs roster reconciliation against a single request service.
type Syncer struct {
	gateway   Gateway
	overrides *overrides.Store
	opts      *options
}

// New creates a Syncer. The override store may not be nil.
func New(gateway Gateway, store *overrides.Store, opts ...Option) *Syncer {
	return &Syncer{
		gateway:   gateway,
		overrides: store,
		opts:      newOptions(opts...),
	}
}

// Run performs one full reconciliation pass over the given media
// servers. Directory order determines merge precedence. A probe or
// fetch failure of an individual server aborts the whole run so a
// partial roster can never trigger removals.
func (s *Syncer) Run(ctx context.Context, directories []Directory) (*Result, error) {
	log := logging.FromContext(ctx)
	result := newResult()

	available, unavailable := s.probe(ctx, directories)
	result.AvailableServers = names(available)
	result.UnavailableServers = names(unavailable)
	if len(available) == 0 {
		return nil, errors.ErrNoServersAvailable
	}
	for _, d := range unavailable {
		log.Warn().Str("server", d.Name()).Msg("media server unavailable, skipping")
	}

	rosters, err := s.fetch(ctx, available)
	if err != nil {
		return nil, err
	}

	merged := roster.NewMerger()
	for _, r := range rosters {
		merged.Add(r.Users)
	}
	result.TotalUsers = merged.Len()
	log.Info().Int("users", merged.Len()).Int("servers", len(available)).Msg("rosters merged")

	accounts, err := s.gateway.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]Account, len(accounts))
	for _, a := range accounts {
		if key := roster.Key(a.Username); key != "" {
			existing[key] = a
		}
	}

	s.create(ctx, merged, existing, result)

	if s.opts.removeMissing {
		unavailableNames := make(map[string]struct{}, len(unavailable))
		for _, d := range unavailable {
			unavailableNames[d.Name()] = struct{}{}
		}
		s.remove(ctx, accounts, merged, unavailableNames, result)
	}

	s.persist(ctx, merged, result)

	return result.finalize(), nil
}

// probe partitions directories into available and unavailable sets,
// preserving configuration order within each.
func (s *Syncer) probe(ctx context.Context, directories []Directory) (available, unavailable []Directory) {
	healthy := make([]bool, len(directories))
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.opts.workers)
	for i, d := range directories {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			healthy[i] = d.HealthCheck(ctx)
		}()
	}
	wg.Wait()

	for i, d := range directories {
		if healthy[i] {
			available = append(available, d)
		} else {
			unavailable = append(unavailable, d)
		}
	}
	return available, unavailable
}

// fetch lists users from every available directory in parallel. Any
// single failure fails the whole fetch.
func (s *Syncer) fetch(ctx context.Context, directories []Directory) ([]roster.Roster, error) {
	rosters := make([]roster.Roster, len(directories))
	errs := make([]error, len(directories))
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.opts.workers)
	for i, d := range directories {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			users, err := d.ListUsers(ctx)
			if err != nil {
				errs[i] = err
				return
			}
			rosters[i] = roster.Roster{Server: d.Name(), Users: users}
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return rosters, nil
}

// create ensures every canonical user has an account, honoring blocks.
func (s *Syncer) create(ctx context.Context, merged *roster.Merger, existing map[string]Account, result *Result) {
	log := logging.FromContext(ctx)
	for _, key := range merged.Keys() {
		user, _ := merged.User(key)

		if s.overrides.Get(key).Blocked {
			result.SkippedBlocked++
			log.Debug().Str("user", user.Username).Msg("user blocked, not creating")
			continue
		}
		if _, ok := existing[key]; ok {
			result.SkippedExisting++
			continue
		}

		account, err := s.gateway.CreateAccount(ctx, user.Username, user.Password(), s.opts.permissions)
		if err != nil {
			if errors.IsAlreadyExists(err) {
				result.SkippedExisting++
				continue
			}
			result.addError(err)
			log.Error().Err(err).Str("user", user.Username).Msg("account creation failed")
			continue
		}
		existing[key] = account
		result.Created++
		log.Info().Str("user", user.Username).Int("id", account.ID).Msg("account created")

		if user.RequestLimit != nil {
			if err := s.gateway.SetRequestLimit(ctx, account.ID, user.RequestLimit, user.RequestLimit); err != nil {
				result.addWarning("request limit for %s: %v", user.Username, err)
				log.Warn().Err(err).Str("user", user.Username).Msg("setting request limit failed")
			}
		}
	}
}

// remove deletes accounts that no media server backs anymore. Immune
// accounts are never removed. Blocked accounts are always removed.
// Accounts whose recorded source servers are all unavailable are kept,
// so a server outage cannot wipe its users.
func (s *Syncer) remove(ctx context.Context, accounts []Account, merged *roster.Merger, unavailable map[string]struct{}, result *Result) {
	log := logging.FromContext(ctx)
	for _, account := range accounts {
		key := roster.Key(account.Username)
		if key == "" {
			continue
		}
		record := s.overrides.Get(key)

		if record.Immune {
			result.SkippedImmune++
			log.Debug().Str("user", account.Username).Msg("user immune, keeping")
			continue
		}
		if record.Blocked {
			if err := s.gateway.DeleteAccount(ctx, account.ID); err != nil {
				result.addError(err)
				log.Error().Err(err).Str("user", account.Username).Msg("removing blocked account failed")
				continue
			}
			result.RemovedBlocked++
			log.Info().Str("user", account.Username).Msg("blocked account removed")
			continue
		}
		if _, ok := merged.User(key); ok {
			continue
		}
		if protectedByOutage(record.SourceServers, unavailable) {
			result.SkippedUnavailable++
			log.Warn().Str("user", account.Username).Msg("source server unavailable, keeping account")
			continue
		}

		if err := s.gateway.DeleteAccount(ctx, account.ID); err != nil {
			result.addError(err)
			log.Error().Err(err).Str("user", account.Username).Msg("account removal failed")
			continue
		}
		s.overrides.ClearSourceServers(key)
		result.Removed++
		log.Info().Str("user", account.Username).Msg("account removed")
	}
}

// persist records the current source servers of every canonical user
// and saves the override store. A save failure degrades the next run's
// outage protection but never fails this one.
func (s *Syncer) persist(ctx context.Context, merged *roster.Merger, result *Result) {
	for _, key := range merged.Keys() {
		user, _ := merged.User(key)
		s.overrides.SetSourceServers(key, user.SourceServers)
	}
	if err := s.overrides.Save(); err != nil {
		result.addWarning("saving overrides: %v", err)
		logging.FromContext(ctx).Warn().Err(err).Msg("saving overrides failed")
	}
}

// protectedByOutage reports whether any of the recorded source servers
// is currently unavailable.
func protectedByOutage(sources []string, unavailable map[string]struct{}) bool {
	for _, s := range sources {
		if _, ok := unavailable[s]; ok {
			return true
		}
	}
	return false
}

func names(directories []Directory) []string {
	if len(directories) == 0 {
		return nil
	}
	out := make([]string, len(directories))
	for i, d := range directories {
		out[i] = d.Name()
	}
	return out
}
