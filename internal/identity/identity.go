// Package identity answers role checks. The real user directory is an
// external system; deployment ini cukup daftar admin dari env.
package identity

import "context"

// StaticAdmins implements sambatan.IdentityDirectory over a fixed id list.
type StaticAdmins struct {
	admins map[string]bool
}

func NewStaticAdmins(ids []string) *StaticAdmins {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return &StaticAdmins{admins: m}
}

func (s *StaticAdmins) IsAdmin(_ context.Context, actorID string) (bool, error) {
	return s.admins[actorID], nil
}
