// Package twitchauth implements the Twitch OAuth2 authorization code flow for
// the bot's chat account. Exchanged tokens are persisted by the caller; the
// Refresh method satisfies oauth.RefreshFunc so the shared refresher can keep
// the stored token alive.
package twitchauth

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/twitch"
)

// Provider is the oauth_tokens row key for Twitch credentials.
const Provider = "twitch"

// Authenticator drives the authorization code and refresh grants. Config is
// exported so tests can point Endpoint at a stub identity server.
type Authenticator struct {
	Config oauth2.Config
}

// New builds an Authenticator. scopes accepts a space or comma separated list.
func New(clientID, clientSecret, redirectURI, scopes string) (*Authenticator, error) {
	if clientID == "" || clientSecret == "" {
		return nil, errors.New("missing twitch client credentials")
	}
	if redirectURI == "" {
		return nil, errors.New("missing twitch redirect URI")
	}
	return &Authenticator{Config: oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       splitScopes(scopes),
		Endpoint:     twitch.Endpoint,
	}}, nil
}

// AuthorizeURL returns the user authorization URL carrying the given state.
func (a *Authenticator) AuthorizeURL(state string) string {
	return a.Config.AuthCodeURL(state)
}

// Exchange redeems an authorization code for tokens.
func (a *Authenticator) Exchange(ctx context.Context, code string) (access, refresh string, expiry time.Time, scope string, err error) {
	if code == "" {
		return "", "", time.Time{}, "", errors.New("missing authorization code")
	}
	tok, err := a.Config.Exchange(ctx, code)
	if err != nil {
		return "", "", time.Time{}, "", err
	}
	return tok.AccessToken, tok.RefreshToken, expiryOrDefault(tok.Expiry), scopeString(tok), nil
}

// Refresh exchanges a refresh token for a new access token. It satisfies
// oauth.RefreshFunc.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (string, string, time.Time, string, error) {
	if refreshToken == "" {
		return "", "", time.Time{}, "", errors.New("missing refresh token")
	}
	ts := a.Config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := ts.Token()
	if err != nil {
		return "", "", time.Time{}, "", err
	}
	return tok.AccessToken, tok.RefreshToken, expiryOrDefault(tok.Expiry), scopeString(tok), nil
}

// expiryOrDefault returns the token expiry, defaulting to +60m when the
// provider omitted expires_in.
func expiryOrDefault(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().Add(60 * time.Minute)
	}
	return t
}

// scopeString flattens the scope field of a token response. Twitch returns
// scopes as a JSON array rather than the space separated string the OAuth2
// spec describes.
func scopeString(tok *oauth2.Token) string {
	switch v := tok.Extra("scope").(type) {
	case string:
		return v
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, s := range v {
			if str, ok := s.(string); ok {
				parts = append(parts, str)
			}
		}
		return strings.Join(parts, " ")
	}
	return ""
}

func splitScopes(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' '
	})
}
