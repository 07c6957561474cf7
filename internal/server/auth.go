package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

var errNoToken = errors.New("missing bearer token")

type ctxKey int

const (
	ctxKeyUser ctxKey = iota
	ctxKeyPeer
)

func bearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(h, "Bearer ")
	if !found {
		token, found = strings.CutPrefix(h, "bearer ")
	}
	token = strings.TrimSpace(token)
	if !found || token == "" {
		return "", errNoToken
	}
	return token, nil
}

func withUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKeyUser, userID)
}

// userFrom returns the authenticated user id placed by requireAuth.
func userFrom(r *http.Request) string {
	id, _ := r.Context().Value(ctxKeyUser).(string)
	return id
}
