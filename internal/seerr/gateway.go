package seerr

import (
	"context"

	"github.com/seerrsync/seerrsync/pkg/syncer"
)

// Gateway adapts Client to the syncer.Gateway interface.
type Gateway struct {
	client *Client
}

var _ syncer.Gateway = (*Gateway)(nil)

// NewGateway wraps a Client for use by the syncer.
func NewGateway(client *Client) *Gateway {
	return &Gateway{client: client}
}

func (g *Gateway) ListAccounts(ctx context.Context) ([]syncer.Account, error) {
	users, err := g.client.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	accounts := make([]syncer.Account, len(users))
	for i, u := range users {
		accounts[i] = account(u)
	}
	return accounts, nil
}

func (g *Gateway) CreateAccount(ctx context.Context, username, password string, permissions int) (syncer.Account, error) {
	user, err := g.client.CreateUser(ctx, username, password, permissions)
	if err != nil {
		return syncer.Account{}, err
	}
	return account(*user), nil
}

func (g *Gateway) DeleteAccount(ctx context.Context, id int) error {
	return g.client.DeleteUser(ctx, id)
}

func (g *Gateway) SetPassword(ctx context.Context, id int, password string) error {
	return g.client.SetPassword(ctx, id, password)
}

func (g *Gateway) SetRequestLimit(ctx context.Context, id int, movieLimit, tvLimit *int) error {
	return g.client.SetRequestLimit(ctx, id, movieLimit, tvLimit)
}

func account(u User) syncer.Account {
	username := u.Username
	if username == "" {
		username = u.Email
	}
	return syncer.Account{ID: u.ID, Username: username, Email: u.Email}
}
