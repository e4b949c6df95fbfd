// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package page_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starbasehq/starbase/internal/component"
	"github.com/starbasehq/starbase/internal/component/page"
	"github.com/starbasehq/starbase/internal/perm"
	"github.com/starbasehq/starbase/internal/platform/apperr"
)

// # Test Doubles

type fakePageRepo struct {
	pages map[string]*page.Page
}

func (repo *fakePageRepo) Create(_ context.Context, p *page.Page) error {
	repo.pages[p.ID] = p
	return nil
}

func (repo *fakePageRepo) FindByID(_ context.Context, id string) (*page.Page, error) {
	p, ok := repo.pages[id]
	if !ok {
		return nil, apperr.NotFound("Page")
	}
	return p, nil
}

func (repo *fakePageRepo) Update(_ context.Context, p *page.Page) error {
	repo.pages[p.ID] = p
	return nil
}

func (repo *fakePageRepo) Delete(_ context.Context, id string) error {
	delete(repo.pages, id)
	return nil
}

type testSubject struct {
	id     string
	admin  bool
	banned bool
}

func (s *testSubject) SubjectID() string { return s.id }
func (s *testSubject) IsAdmin() bool     { return s.admin }
func (s *testSubject) IsBanned() bool    { return s.banned }

type testDirectory struct {
	subjects map[string]*testSubject
}

func (d *testDirectory) FindSubject(_ context.Context, id string) (perm.Subject, error) {
	s, ok := d.subjects[id]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	return s, nil
}

type testRealm struct {
	id      string
	owner   string
	private bool
	members []string
}

func (r *testRealm) RealmID() string { return r.id }
func (r *testRealm) OwnerID() string { return r.owner }
func (r *testRealm) IsPrivate() bool { return r.private }

func (r *testRealm) HasMember(userID string) bool {
	for _, id := range r.members {
		if id == userID {
			return true
		}
	}
	return false
}

func (r *testRealm) HasBanned(string) bool { return false }

type testRealmSource struct {
	realms map[string]*testRealm
}

func (source *testRealmSource) FindRealm(_ context.Context, id string) (perm.Realm, error) {
	r, ok := source.realms[id]
	if !ok {
		return nil, apperr.NotFound("Planet")
	}
	return r, nil
}

// # Fixture

func newService(t *testing.T) (*page.Service, *fakePageRepo) {
	t.Helper()

	directory := &testDirectory{subjects: map[string]*testSubject{
		"owner":    {id: "owner"},
		"member":   {id: "member"},
		"stranger": {id: "stranger"},
	}}
	realms := &testRealmSource{realms: map[string]*testRealm{
		"public":  {id: "public", owner: "owner", members: []string{"member"}},
		"private": {id: "private", owner: "owner", private: true, members: []string{"member"}},
	}}

	repo := &fakePageRepo{pages: make(map[string]*page.Page)}
	return page.NewService(repo, perm.NewEngine(directory, realms)), repo
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var appError *apperr.AppError
	require.ErrorAs(t, err, &appError)
	assert.Equal(t, code, appError.Code)
}

// # Tests

func TestLifecycle(t *testing.T) {
	service, repo := newService(t)
	ctx := context.Background()

	assert.Equal(t, component.KindPage, service.Kind())

	id, err := service.Create(ctx, "public", "owner", "About")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := service.Get(ctx, "", id)
	require.NoError(t, err)
	assert.Equal(t, "About", got.Name)
	assert.Equal(t, "owner", got.UpdatedBy)

	require.NoError(t, service.Delete(ctx, id))
	assert.Empty(t, repo.pages)
}

func TestUpdate(t *testing.T) {
	service, _ := newService(t)
	ctx := context.Background()

	id, err := service.Create(ctx, "public", "owner", "About")
	require.NoError(t, err)

	newContent := "We are a crew of space enthusiasts."

	t.Run("member_edits", func(t *testing.T) {
		updated, err := service.Update(ctx, "member", id, page.UpdateInput{Content: &newContent})
		require.NoError(t, err)
		assert.Equal(t, newContent, updated.Content)
		assert.Equal(t, "member", updated.UpdatedBy)
		assert.Equal(t, "About", updated.Name)
	})

	t.Run("stranger_cannot_edit", func(t *testing.T) {
		// Editing the page is structural, so even on a public planet a
		// non-member is refused.
		_, err := service.Update(ctx, "stranger", id, page.UpdateInput{Content: &newContent})
		requireCode(t, err, "FORBIDDEN")
	})

	t.Run("anonymous_cannot_edit", func(t *testing.T) {
		_, err := service.Update(ctx, "", id, page.UpdateInput{Content: &newContent})
		requireCode(t, err, "UNAUTHORIZED")
	})
}

func TestVisibility(t *testing.T) {
	service, _ := newService(t)
	ctx := context.Background()

	id, err := service.Create(ctx, "private", "owner", "Secrets")
	require.NoError(t, err)

	t.Run("hidden_from_strangers", func(t *testing.T) {
		_, err := service.Get(ctx, "stranger", id)
		requireCode(t, err, "NOT_FOUND")
	})

	t.Run("visible_to_member", func(t *testing.T) {
		_, err := service.Get(ctx, "member", id)
		require.NoError(t, err)
	})
}
