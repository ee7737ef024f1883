package auth

import "errors"

var (
	// ErrNotLoggedIn is returned by a token source with nothing to hand out.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrNoTokenURL is returned by Login when no identity provider is configured.
	ErrNoTokenURL = errors.New("auth.token_url is not configured")
)
