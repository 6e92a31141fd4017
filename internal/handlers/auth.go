package handlers

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const adminTokenHeader = "X-Admin-Token"

// RoleChecker is the external capability check guarding administrative
// operations. Identity management itself lives outside this service.
type RoleChecker interface {
	HasAdminRole(r *http.Request) bool
}

// TokenRoleChecker grants the admin role to callers presenting the shared
// back-office token. An empty configured token denies everyone.
type TokenRoleChecker struct {
	token string
}

// NewTokenRoleChecker constructs a checker for the configured token.
func NewTokenRoleChecker(token string) *TokenRoleChecker {
	return &TokenRoleChecker{token: strings.TrimSpace(token)}
}

// HasAdminRole implements RoleChecker.
func (c *TokenRoleChecker) HasAdminRole(r *http.Request) bool {
	if c == nil || c.token == "" {
		return false
	}
	presented := strings.TrimSpace(r.Header.Get(adminTokenHeader))
	if presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(c.token)) == 1
}
