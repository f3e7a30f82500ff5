package syncer

import (
	"context"

	"github.com/seerrsync/seerrsync/pkg/errors"
	"github.com/seerrsync/seerrsync/pkg/logging"
	"github.com/seerrsync/seerrsync/pkg/roster"
)

// ProvisionRequest describes one manually managed account.
type ProvisionRequest struct {
	Username     string
	Password     string
	RequestLimit *int
	Blocked      bool
	Immune       bool
}

// Provision creates or adopts a single account outside of a full sync
// run. Existing accounts are adopted as-is. New accounts require a
// password. Override flags are recorded either way so later runs honor
// them.
func (s *Syncer) Provision(ctx context.Context, req ProvisionRequest) (Account, error) {
	log := logging.FromContext(ctx)

	key := roster.Key(req.Username)
	if key == "" {
		return Account{}, &errors.ValidationError{Field: "username", Message: "must not be empty"}
	}

	accounts, err := s.gateway.ListAccounts(ctx)
	if err != nil {
		return Account{}, err
	}

	var account Account
	var found bool
	for _, a := range accounts {
		if roster.Key(a.Username) == key {
			account, found = a, true
			break
		}
	}

	if !found {
		if req.Password == "" {
			return Account{}, &errors.ValidationError{Field: "password", Message: "required when creating a new account"}
		}
		account, err = s.gateway.CreateAccount(ctx, req.Username, req.Password, s.opts.permissions)
		if err != nil {
			return Account{}, err
		}
		log.Info().Str("user", req.Username).Int("id", account.ID).Msg("account provisioned")

		// Some request service versions ignore the password on
		// creation, so set it again explicitly.
		if err := s.gateway.SetPassword(ctx, account.ID, req.Password); err != nil {
			log.Warn().Err(err).Str("user", req.Username).Msg("setting password failed")
		}
		if req.RequestLimit != nil {
			if err := s.gateway.SetRequestLimit(ctx, account.ID, req.RequestLimit, req.RequestLimit); err != nil {
				log.Warn().Err(err).Str("user", req.Username).Msg("setting request limit failed")
			}
		}
	} else {
		log.Info().Str("user", account.Username).Int("id", account.ID).Msg("adopting existing account")
	}

	s.overrides.SetBlocked(key, req.Blocked)
	s.overrides.SetImmune(key, req.Immune)
	if err := s.overrides.Save(); err != nil {
		return account, err
	}
	return account, nil
}
