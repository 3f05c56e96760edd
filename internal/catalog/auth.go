package catalog

import (
	"net/http"
	"strconv"
)

// Identity is the caller as forwarded by the Gateway. Token verification
// happens upstream; this service only authorizes.
type Identity struct {
	Username string
	IsAdmin  bool
}

// NewIdentity builds an Identity from the raw x-user-id / x-is-admin values.
// A malformed admin flag is treated as false.
func NewIdentity(userID, isAdmin string) Identity {
	admin, _ := strconv.ParseBool(isAdmin)
	return Identity{Username: userID, IsAdmin: admin}
}

// IdentityFromRequest reads the identity headers forwarded by the Gateway.
func IdentityFromRequest(r *http.Request) Identity {
	return NewIdentity(r.Header.Get("x-user-id"), r.Header.Get("x-is-admin"))
}

// RequireAdmin allows admins only.
func (id Identity) RequireAdmin() error {
	if id.Username == "" {
		return ErrUnauthenticated
	}
	if !id.IsAdmin {
		return ErrForbidden
	}
	return nil
}

// RequireUserOrAdmin allows admins and the user named username.
func (id Identity) RequireUserOrAdmin(username string) error {
	if id.Username == "" {
		return ErrUnauthenticated
	}
	if !id.IsAdmin && id.Username != username {
		return ErrForbidden
	}
	return nil
}
