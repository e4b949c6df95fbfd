// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package perm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starbasehq/starbase/internal/perm"
	"github.com/starbasehq/starbase/internal/platform/apperr"
)

// fakeSubject is a minimal in-memory perm.Subject.
type fakeSubject struct {
	id     string
	admin  bool
	banned bool
}

func (s *fakeSubject) SubjectID() string { return s.id }
func (s *fakeSubject) IsAdmin() bool     { return s.admin }
func (s *fakeSubject) IsBanned() bool    { return s.banned }

// fakeRealm is a minimal in-memory perm.Realm.
type fakeRealm struct {
	id      string
	owner   string
	private bool
	members map[string]bool
	banned  map[string]bool
}

func (r *fakeRealm) RealmID() string             { return r.id }
func (r *fakeRealm) OwnerID() string             { return r.owner }
func (r *fakeRealm) IsPrivate() bool             { return r.private }
func (r *fakeRealm) HasMember(id string) bool    { return r.members[id] }
func (r *fakeRealm) HasBanned(id string) bool    { return r.banned[id] }

/*
TestRead covers the visibility tier across public/private planets and the
full range of caller identities.
*/
func TestRead(t *testing.T) {
	owner := &fakeSubject{id: "owner"}
	member := &fakeSubject{id: "member"}
	outsider := &fakeSubject{id: "outsider"}
	admin := &fakeSubject{id: "root", admin: true}

	public := &fakeRealm{id: "p1", owner: "owner", members: map[string]bool{"member": true}}
	private := &fakeRealm{id: "p2", owner: "owner", private: true, members: map[string]bool{"member": true}}

	tests := []struct {
		name    string
		subject perm.Subject
		realm   perm.Realm
		want    bool
	}{
		{"public_anonymous", nil, public, true},
		{"public_outsider", outsider, public, true},
		{"private_anonymous", nil, private, false},
		{"private_outsider", outsider, private, false},
		{"private_member", member, private, true},
		{"private_owner_not_in_member_set", owner, private, true},
		{"private_global_admin", admin, private, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, perm.Read(tt.subject, tt.realm))
		})
	}
}

/*
TestPublicWrite covers drive-by write access: publicness opens the tier,
bans close it, and private planets fall back to membership.
*/
func TestPublicWrite(t *testing.T) {
	member := &fakeSubject{id: "member"}
	outsider := &fakeSubject{id: "outsider"}
	admin := &fakeSubject{id: "root", admin: true}
	bannedAdmin := &fakeSubject{id: "exroot", admin: true, banned: true}
	globallyBanned := &fakeSubject{id: "ghost", banned: true}
	planetBanned := &fakeSubject{id: "troll"}

	public := &fakeRealm{
		id: "p1", owner: "owner",
		members: map[string]bool{"member": true, "troll": true},
		banned:  map[string]bool{"troll": true},
	}
	private := &fakeRealm{
		id: "p2", owner: "owner", private: true,
		members: map[string]bool{"member": true},
	}

	tests := []struct {
		name    string
		subject perm.Subject
		realm   perm.Realm
		want    bool
	}{
		{"anonymous_rejected", nil, public, false},
		{"public_outsider_allowed", outsider, public, true},
		{"private_outsider_rejected", outsider, private, false},
		{"private_member_allowed", member, private, true},
		{"admin_bypasses_privacy", admin, private, true},
		{"global_ban_blocks_everyone", globallyBanned, public, false},
		{"global_ban_beats_admin_flag", bannedAdmin, public, false},
		{"planet_ban_blocks_member", planetBanned, public, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, perm.PublicWrite(tt.subject, tt.realm))
		})
	}
}

/*
TestFullWrite verifies that publicness never grants structural write access.
*/
func TestFullWrite(t *testing.T) {
	owner := &fakeSubject{id: "owner"}
	member := &fakeSubject{id: "member"}
	outsider := &fakeSubject{id: "outsider"}
	admin := &fakeSubject{id: "root", admin: true}
	planetBanned := &fakeSubject{id: "troll"}

	public := &fakeRealm{
		id: "p1", owner: "owner",
		members: map[string]bool{"member": true, "troll": true},
		banned:  map[string]bool{"troll": true},
	}

	tests := []struct {
		name    string
		subject perm.Subject
		want    bool
	}{
		{"anonymous_rejected", nil, false},
		{"outsider_rejected_despite_public", outsider, false},
		{"member_allowed", member, true},
		{"owner_allowed", owner, true},
		{"admin_allowed", admin, true},
		{"planet_ban_blocks_member", planetBanned, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, perm.FullWrite(tt.subject, public))
		})
	}
}

// # Resolving Engine

// fakeSubjects implements perm.SubjectSource over a map.
type fakeSubjects map[string]*fakeSubject

func (s fakeSubjects) FindSubject(_ context.Context, id string) (perm.Subject, error) {
	subject, ok := s[id]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	return subject, nil
}

// fakeRealms implements perm.RealmSource over a map.
type fakeRealms map[string]*fakeRealm

func (r fakeRealms) FindRealm(_ context.Context, id string) (perm.Realm, error) {
	realm, ok := r[id]
	if !ok {
		return nil, apperr.NotFound("Planet")
	}
	return realm, nil
}

/*
TestEngine_ReadByID exercises id resolution: anonymous callers resolve to a
nil subject, unknown planets fail with NOT_FOUND instead of false.
*/
func TestEngine_ReadByID(t *testing.T) {
	engine := perm.NewEngine(
		fakeSubjects{"member": {id: "member"}},
		fakeRealms{"p1": {id: "p1", owner: "owner", private: true, members: map[string]bool{"member": true}}},
	)
	ctx := context.Background()

	t.Run("anonymous_private", func(t *testing.T) {
		allowed, err := engine.ReadByID(ctx, "", "p1")
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("member_private", func(t *testing.T) {
		allowed, err := engine.ReadByID(ctx, "member", "p1")
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("unknown_planet_is_not_found", func(t *testing.T) {
		_, err := engine.ReadByID(ctx, "member", "missing")
		require.Error(t, err)
		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, "NOT_FOUND", ae.Code)
	})

	t.Run("unknown_user_is_not_found", func(t *testing.T) {
		_, err := engine.ReadByID(ctx, "missing", "p1")
		require.Error(t, err)
		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, "NOT_FOUND", ae.Code)
	})
}

/*
TestEngine_AdminByID verifies the admin tier distinguishes missing users
from non-admin users.
*/
func TestEngine_AdminByID(t *testing.T) {
	engine := perm.NewEngine(
		fakeSubjects{
			"root":   {id: "root", admin: true},
			"member": {id: "member"},
		},
		fakeRealms{},
	)
	ctx := context.Background()

	allowed, err := engine.AdminByID(ctx, "root")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = engine.AdminByID(ctx, "member")
	require.NoError(t, err)
	assert.False(t, allowed)

	_, err = engine.AdminByID(ctx, "missing")
	require.Error(t, err)

	_, err = engine.AdminByID(ctx, "")
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", apperr.As(err).Code)
}
