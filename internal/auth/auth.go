// Package auth resolves the identity forwarded by the tracker's reverse
// proxy and the permissions granted to it.
package auth

import (
	"net/http"
	"strings"

	"github.com/tracmailman/mailarchive/internal/config"
)

const (
	PermView  = "MAILMAN_VIEW"
	PermAdmin = "MAILMAN_ADMIN"

	Anonymous = "anonymous"
)

// implied maps a permission to the permissions it grants as well.
var implied = map[string][]string{
	PermAdmin: {PermView},
}

type User struct {
	Name          string
	Authenticated bool
	perms         map[string]bool
}

func (u User) Has(perm string) bool {
	return u.perms[perm]
}

type Authenticator struct {
	header      string
	permissions map[string][]string
	defaults    []string
}

func New(cfg config.AuthConfig) *Authenticator {
	return &Authenticator{
		header:      cfg.UserHeader,
		permissions: cfg.Permissions,
		defaults:    cfg.DefaultPermissions,
	}
}

// Identify reads the user from the configured header. An empty header or
// the literal "anonymous" yields an unauthenticated user holding only the
// permissions configured for "anonymous"; authenticated users get the
// default permissions plus their own.
func (a *Authenticator) Identify(r *http.Request) User {
	name := strings.TrimSpace(r.Header.Get(a.header))
	if name == "" || name == Anonymous {
		return User{Name: Anonymous, perms: expand(a.permissions[Anonymous])}
	}
	granted := append(append([]string(nil), a.defaults...), a.permissions[name]...)
	return User{Name: name, Authenticated: true, perms: expand(granted)}
}

func expand(granted []string) map[string]bool {
	perms := make(map[string]bool, len(granted))
	for _, p := range granted {
		perms[p] = true
		for _, q := range implied[p] {
			perms[q] = true
		}
	}
	return perms
}
