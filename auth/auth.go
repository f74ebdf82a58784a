package auth

import (
	"context"
	"fmt"

	"agenda-bot/types"

	"go.uber.org/zap"
)

// Session is what the rest of the bot knows about a signed-in user: an opaque
// account URI and a display name. The auth mechanism itself never leaks past
// this package.
type Session struct {
	UserURI string
	Name    string
}

// Provider abstracts over the sign-in variants the app has shipped with.
type Provider interface {
	SignIn(ctx context.Context) (*Session, error)
	SignOut()
}

// UserAPI is the slice of the scheduling client the token provider needs.
type UserAPI interface {
	GetCurrentUser(ctx context.Context) (*types.User, error)
}

// SessionStore caches the resolved account between sign-ins.
type SessionStore interface {
	SaveUserURI(ctx context.Context, uri string) error
	GetUserURI(ctx context.Context) (string, error)
}

// TokenProvider signs in with a personal access token by resolving the
// current user on the provider API.
type TokenProvider struct {
	api   UserAPI
	store SessionStore
	log   *zap.SugaredLogger
}

func NewTokenProvider(api UserAPI, store SessionStore, log *zap.SugaredLogger) *TokenProvider {
	return &TokenProvider{api: api, store: store, log: log}
}

func (p *TokenProvider) SignIn(ctx context.Context) (*Session, error) {
	if p.store != nil {
		if uri, err := p.store.GetUserURI(ctx); err == nil && uri != "" {
			return &Session{UserURI: uri}, nil
		}
	}

	user, err := p.api.GetCurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}

	if p.store != nil {
		if err := p.store.SaveUserURI(ctx, user.URI); err != nil {
			p.log.Warnw("failed to cache user uri", "err", err)
		}
	}

	p.log.Infow("signed in", "user", user.Name)
	return &Session{UserURI: user.URI, Name: user.Name}, nil
}

func (p *TokenProvider) SignOut() {}
