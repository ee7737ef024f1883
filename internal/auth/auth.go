// Package auth supplies bearer tokens for backend requests.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"docforms/internal/config"
	"docforms/internal/logger"
)

// NewTokenSource picks the token source for cfg:
//   - a static auth.token;
//   - client credentials when auth.client_secret is set;
//   - otherwise the token saved by Login, re-read on demand.
func NewTokenSource(ctx context.Context, cfg config.AuthConfig) oauth2.TokenSource {
	log := logger.WithComponent("auth")

	switch {
	case cfg.Token != "":
		log.Debug().Msg("Using static bearer token")
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"})

	case cfg.TokenURL != "" && cfg.ClientSecret != "":
		log.Debug().Str("token_url", cfg.TokenURL).Msg("Using client credentials grant")
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		return cc.TokenSource(ctx)

	default:
		return &sessionSource{
			ctx:   ctx,
			store: FileStore{Path: cfg.TokenFile},
			oauth: oauthConfig(cfg),
			log:   log,
		}
	}
}

func oauthConfig(cfg config.AuthConfig) *oauth2.Config {
	if cfg.TokenURL == "" {
		return nil
	}
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: cfg.TokenURL, AuthStyle: oauth2.AuthStyleInParams},
	}
}

// Login exchanges a username and password for a token and saves it.
func Login(ctx context.Context, cfg config.AuthConfig, username, password string) (*oauth2.Token, error) {
	const op = "auth.Login"

	oc := oauthConfig(cfg)
	if oc == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrNoTokenURL)
	}
	tok, err := oc.PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := (FileStore{Path: cfg.TokenFile}).Save(tok); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log := logger.WithComponent("auth")
	log.Info().Str("user", username).Msg("Logged in")
	return tok, nil
}

// Logout forgets the saved token.
func Logout(cfg config.AuthConfig) error {
	return FileStore{Path: cfg.TokenFile}.Clear()
}

// sessionSource serves the token saved by Login. It re-reads the file when
// its cached token is gone or expired, so a login in another process or page
// takes effect without a restart.
type sessionSource struct {
	ctx   context.Context
	store FileStore
	oauth *oauth2.Config
	log   zerolog.Logger

	mu  sync.Mutex
	tok *oauth2.Token
}

func (s *sessionSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tok.Valid() {
		return s.tok, nil
	}

	tok, err := s.store.Load()
	if err != nil {
		s.tok = nil
		return nil, err
	}
	if tok.Valid() {
		s.tok = tok
		return tok, nil
	}

	if s.oauth == nil || tok.RefreshToken == "" {
		return nil, ErrNotLoggedIn
	}
	fresh, err := s.oauth.TokenSource(s.ctx, tok).Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			s.log.Warn().Err(err).Msg("Token refresh rejected")
			return nil, ErrNotLoggedIn
		}
		return nil, fmt.Errorf("sessionSource.Token: %w", err)
	}
	if err := s.store.Save(fresh); err != nil {
		s.log.Warn().Err(err).Msg("Failed to persist refreshed token")
	}
	s.tok = fresh
	return fresh, nil
}
