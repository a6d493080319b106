package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

var errUnauthenticated = errors.New("missing or invalid access token")

// callerID resolves the authenticated user behind a request from its bearer
// access token.
func callerID(ctx context.Context, sessions SessionManager, r *http.Request) (string, error) {
	if sessions == nil {
		return "", errUnauthenticated
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || strings.TrimSpace(token) == "" {
		return "", errUnauthenticated
	}

	userID, err := sessions.Authenticate(ctx, strings.TrimSpace(token))
	if err != nil {
		return "", errUnauthenticated
	}
	return userID, nil
}
