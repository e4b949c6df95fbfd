// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package wiki_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starbasehq/starbase/internal/component"
	"github.com/starbasehq/starbase/internal/component/wiki"
	"github.com/starbasehq/starbase/internal/perm"
	"github.com/starbasehq/starbase/internal/platform/apperr"
)

// # Test Doubles

type fakeWikiRepo struct {
	wikis map[string]*wiki.Wiki
	pages map[string]*wiki.Page // key: wikiID + "/" + slug
}

func newFakeWikiRepo() *fakeWikiRepo {
	return &fakeWikiRepo{
		wikis: make(map[string]*wiki.Wiki),
		pages: make(map[string]*wiki.Page),
	}
}

func (repo *fakeWikiRepo) CreateWiki(_ context.Context, w *wiki.Wiki) error {
	repo.wikis[w.ID] = w
	return nil
}

func (repo *fakeWikiRepo) FindWikiByID(_ context.Context, id string) (*wiki.Wiki, error) {
	w, ok := repo.wikis[id]
	if !ok {
		return nil, apperr.NotFound("Wiki")
	}
	return w, nil
}

func (repo *fakeWikiRepo) DeleteWiki(_ context.Context, id string) error {
	delete(repo.wikis, id)
	for key, p := range repo.pages {
		if p.WikiID == id {
			delete(repo.pages, key)
		}
	}
	return nil
}

func (repo *fakeWikiRepo) CreatePage(_ context.Context, p *wiki.Page) error {
	repo.pages[p.WikiID+"/"+p.Slug] = p
	return nil
}

func (repo *fakeWikiRepo) FindPageBySlug(_ context.Context, wikiID, slug string) (*wiki.Page, error) {
	p, ok := repo.pages[wikiID+"/"+slug]
	if !ok {
		return nil, apperr.NotFound("Wiki page")
	}
	return p, nil
}

func (repo *fakeWikiRepo) ListPages(_ context.Context, wikiID string) ([]*wiki.Page, error) {
	var pages []*wiki.Page
	for _, p := range repo.pages {
		if p.WikiID == wikiID {
			pages = append(pages, p)
		}
	}
	return pages, nil
}

func (repo *fakeWikiRepo) UpdatePage(_ context.Context, p *wiki.Page) error {
	repo.pages[p.WikiID+"/"+p.Slug] = p
	return nil
}

func (repo *fakeWikiRepo) DeletePage(_ context.Context, wikiID, slug string) error {
	key := wikiID + "/" + slug
	if _, ok := repo.pages[key]; !ok {
		return apperr.NotFound("Wiki page")
	}
	delete(repo.pages, key)
	return nil
}

// testSubject is a minimal perm.Subject.
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

// testRealm is a minimal perm.Realm.
type testRealm struct {
	id      string
	owner   string
	private bool
	members []string
	banned  []string
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

func (r *testRealm) HasBanned(userID string) bool {
	for _, id := range r.banned {
		if id == userID {
			return true
		}
	}
	return false
}

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

type wikiFixture struct {
	service *wiki.Service
	repo    *fakeWikiRepo
	wikiID  string
}

// newFixture builds a wiki on a public planet "p1" (owner "owner", member
// "member", planet-banned "banned") plus a private planet "p2".
func newFixture(t *testing.T) *wikiFixture {
	t.Helper()

	directory := &testDirectory{subjects: map[string]*testSubject{
		"owner":    {id: "owner"},
		"member":   {id: "member"},
		"stranger": {id: "stranger"},
		"banned":   {id: "banned"},
		"operator": {id: "operator", admin: true},
	}}
	realms := &testRealmSource{realms: map[string]*testRealm{
		"p1": {id: "p1", owner: "owner", members: []string{"member"}, banned: []string{"banned"}},
		"p2": {id: "p2", owner: "owner", private: true, members: []string{"member"}},
	}}
	engine := perm.NewEngine(directory, realms)

	repo := newFakeWikiRepo()
	service := wiki.NewService(repo, engine)

	wikiID, err := service.Create(context.Background(), "p1", "owner", "Knowledge Base")
	require.NoError(t, err)

	return &wikiFixture{service: service, repo: repo, wikiID: wikiID}
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var appError *apperr.AppError
	require.ErrorAs(t, err, &appError)
	assert.Equal(t, code, appError.Code)
}

// # Tests

func TestVariantIdentity(t *testing.T) {
	fixture := newFixture(t)
	assert.Equal(t, component.KindWiki, fixture.service.Kind())
}

func TestPageLifecycle(t *testing.T) {
	fixture := newFixture(t)
	ctx := context.Background()

	created, err := fixture.service.CreatePage(ctx, "stranger", fixture.wikiID, wiki.PageInput{
		Title:   "Getting Started",
		Content: "Welcome aboard.",
	})
	require.NoError(t, err)
	assert.Equal(t, "getting-started", created.Slug)
	assert.Equal(t, "stranger", created.UpdatedBy)

	t.Run("slug_conflict", func(t *testing.T) {
		_, err := fixture.service.CreatePage(ctx, "member", fixture.wikiID, wiki.PageInput{
			Title: "Getting STARTED",
		})
		requireCode(t, err, "CONFLICT")
	})

	t.Run("edit_keeps_slug", func(t *testing.T) {
		updated, err := fixture.service.UpdatePage(ctx, "member", fixture.wikiID, "getting-started", wiki.PageInput{
			Title:   "Getting Started (v2)",
			Content: "Updated.",
		})
		require.NoError(t, err)
		assert.Equal(t, "getting-started", updated.Slug)
		assert.Equal(t, "member", updated.UpdatedBy)
	})

	t.Run("anonymous_reads", func(t *testing.T) {
		page, err := fixture.service.GetPage(ctx, "", fixture.wikiID, "getting-started")
		require.NoError(t, err)
		assert.Equal(t, "Getting Started (v2)", page.Title)
	})

	t.Run("listing", func(t *testing.T) {
		_, pages, err := fixture.service.Get(ctx, "", fixture.wikiID)
		require.NoError(t, err)
		require.Len(t, pages, 1)
	})
}

func TestPagePermissions(t *testing.T) {
	fixture := newFixture(t)
	ctx := context.Background()

	t.Run("anonymous_cannot_write", func(t *testing.T) {
		_, err := fixture.service.CreatePage(ctx, "", fixture.wikiID, wiki.PageInput{Title: "X"})
		requireCode(t, err, "UNAUTHORIZED")
	})

	t.Run("planet_banned_cannot_write", func(t *testing.T) {
		_, err := fixture.service.CreatePage(ctx, "banned", fixture.wikiID, wiki.PageInput{Title: "X"})
		requireCode(t, err, "FORBIDDEN")
	})

	t.Run("delete_is_moderation", func(t *testing.T) {
		_, err := fixture.service.CreatePage(ctx, "stranger", fixture.wikiID, wiki.PageInput{Title: "Ephemeral"})
		require.NoError(t, err)

		// The author alone cannot delete; FullWrite is required.
		err = fixture.service.DeletePage(ctx, "stranger", fixture.wikiID, "ephemeral")
		requireCode(t, err, "FORBIDDEN")

		require.NoError(t, fixture.service.DeletePage(ctx, "owner", fixture.wikiID, "ephemeral"))
	})
}

func TestPrivatePlanetWiki(t *testing.T) {
	fixture := newFixture(t)
	ctx := context.Background()

	hiddenID, err := fixture.service.Create(ctx, "p2", "owner", "Secret Docs")
	require.NoError(t, err)

	t.Run("hidden_from_strangers", func(t *testing.T) {
		_, _, err := fixture.service.Get(ctx, "stranger", hiddenID)
		requireCode(t, err, "NOT_FOUND")
	})

	t.Run("member_writes", func(t *testing.T) {
		_, err := fixture.service.CreatePage(ctx, "member", hiddenID, wiki.PageInput{Title: "Internal"})
		require.NoError(t, err)
	})
}

func TestCascade(t *testing.T) {
	fixture := newFixture(t)
	ctx := context.Background()

	_, err := fixture.service.CreatePage(ctx, "owner", fixture.wikiID, wiki.PageInput{Title: "Doomed"})
	require.NoError(t, err)

	require.NoError(t, fixture.service.Delete(ctx, fixture.wikiID))
	assert.Empty(t, fixture.repo.pages)
	assert.Empty(t, fixture.repo.wikis)
}
