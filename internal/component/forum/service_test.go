// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package forum_test

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starbasehq/starbase/internal/component"
	"github.com/starbasehq/starbase/internal/component/forum"
	"github.com/starbasehq/starbase/internal/perm"
	"github.com/starbasehq/starbase/internal/platform/apperr"
	"github.com/starbasehq/starbase/pkg/pagination"
)

// # Test Doubles

type reactionKey struct {
	targetID string
	userID   string
	emoji    string
}

type fakeForumRepo struct {
	forums    map[string]*forum.Forum
	posts     map[string]*forum.Post
	replies   map[string]*forum.Reply
	reactions map[reactionKey]bool
}

func newFakeForumRepo() *fakeForumRepo {
	return &fakeForumRepo{
		forums:    make(map[string]*forum.Forum),
		posts:     make(map[string]*forum.Post),
		replies:   make(map[string]*forum.Reply),
		reactions: make(map[reactionKey]bool),
	}
}

func (repo *fakeForumRepo) CreateForum(_ context.Context, f *forum.Forum) error {
	repo.forums[f.ID] = f
	return nil
}

func (repo *fakeForumRepo) FindForumByID(_ context.Context, id string) (*forum.Forum, error) {
	f, ok := repo.forums[id]
	if !ok {
		return nil, apperr.NotFound("Forum")
	}
	return f, nil
}

func (repo *fakeForumRepo) DeleteForum(_ context.Context, id string) error {
	delete(repo.forums, id)
	for postID, p := range repo.posts {
		if p.ForumID == id {
			_ = repo.DeletePost(context.Background(), postID)
		}
	}
	return nil
}

func (repo *fakeForumRepo) CreatePost(_ context.Context, p *forum.Post) error {
	repo.posts[p.ID] = p
	return nil
}

func (repo *fakeForumRepo) FindManyPosts(_ context.Context, ids []string) (map[string]*forum.Post, error) {
	found := make(map[string]*forum.Post)
	for _, id := range ids {
		if p, ok := repo.posts[id]; ok {
			found[id] = p
		}
	}
	return found, nil
}

func (repo *fakeForumRepo) FindPostByID(_ context.Context, id string) (*forum.Post, error) {
	p, ok := repo.posts[id]
	if !ok {
		return nil, apperr.NotFound("Post")
	}
	clone := *p
	clone.Reactions = repo.countReactions(id)
	return &clone, nil
}

func (repo *fakeForumRepo) ListPosts(_ context.Context, forumID string, _ pagination.Params, tag string) ([]*forum.Post, int, error) {
	var matched []*forum.Post
	for _, p := range repo.posts {
		if p.ForumID != forumID {
			continue
		}
		if tag != "" && !contains(p.Tags, tag) {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Stickied != matched[j].Stickied {
			return matched[i].Stickied
		}
		return matched[i].ID < matched[j].ID
	})
	return matched, len(matched), nil
}

func (repo *fakeForumRepo) UpdatePost(_ context.Context, p *forum.Post) error {
	stored, ok := repo.posts[p.ID]
	if !ok {
		return apperr.NotFound("Post")
	}
	stored.Title = p.Title
	stored.Body = p.Body
	stored.Tags = p.Tags
	return nil
}

func (repo *fakeForumRepo) DeletePost(_ context.Context, id string) error {
	delete(repo.posts, id)
	for replyID, r := range repo.replies {
		if r.PostID == id {
			delete(repo.replies, replyID)
		}
	}
	for key := range repo.reactions {
		if key.targetID == id {
			delete(repo.reactions, key)
		}
	}
	return nil
}

func (repo *fakeForumRepo) SetStickied(_ context.Context, postID string, stickied bool) error {
	p, ok := repo.posts[postID]
	if !ok {
		return apperr.NotFound("Post")
	}
	p.Stickied = stickied
	return nil
}

func (repo *fakeForumRepo) SetLocked(_ context.Context, postID string, locked bool) error {
	p, ok := repo.posts[postID]
	if !ok {
		return apperr.NotFound("Post")
	}
	p.Locked = locked
	return nil
}

func (repo *fakeForumRepo) CreateReply(_ context.Context, r *forum.Reply) error {
	repo.replies[r.ID] = r
	return nil
}

func (repo *fakeForumRepo) FindReplyByID(_ context.Context, id string) (*forum.Reply, error) {
	r, ok := repo.replies[id]
	if !ok {
		return nil, apperr.NotFound("Reply")
	}
	return r, nil
}

func (repo *fakeForumRepo) ListReplies(_ context.Context, postID string) ([]*forum.Reply, error) {
	var replies []*forum.Reply
	for _, r := range repo.replies {
		if r.PostID == postID {
			replies = append(replies, r)
		}
	}
	sort.Slice(replies, func(i, j int) bool { return replies[i].ID < replies[j].ID })
	return replies, nil
}

func (repo *fakeForumRepo) DeleteReply(_ context.Context, id string) error {
	delete(repo.replies, id)
	return nil
}

func (repo *fakeForumRepo) ToggleReaction(_ context.Context, targetID, userID, emoji string) (bool, error) {
	key := reactionKey{targetID: targetID, userID: userID, emoji: emoji}
	if repo.reactions[key] {
		delete(repo.reactions, key)
		return false, nil
	}
	repo.reactions[key] = true
	return true, nil
}

func (repo *fakeForumRepo) countReactions(targetID string) []forum.ReactionCount {
	totals := make(map[string]int)
	for key := range repo.reactions {
		if key.targetID == targetID {
			totals[key.emoji]++
		}
	}
	var counts []forum.ReactionCount
	for emoji, count := range totals {
		counts = append(counts, forum.ReactionCount{Emoji: emoji, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Emoji < counts[j].Emoji })
	return counts
}

func contains(set []string, value string) bool {
	for _, entry := range set {
		if entry == value {
			return true
		}
	}
	return false
}

// testSubject / testRealm are minimal perm views.
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
	banned  []string
}

func (r *testRealm) RealmID() string              { return r.id }
func (r *testRealm) OwnerID() string              { return r.owner }
func (r *testRealm) IsPrivate() bool              { return r.private }
func (r *testRealm) HasMember(userID string) bool { return contains(r.members, userID) }
func (r *testRealm) HasBanned(userID string) bool { return contains(r.banned, userID) }

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

type forumFixture struct {
	service *forum.Service
	repo    *fakeForumRepo
	forumID string
}

// newFixture builds a forum on public planet "p1" (owner "owner", member
// "member", planet-banned "banned", globally banned "gbanned"). "stranger"
// and "drifter" are bystanders who belong to nothing.
func newFixture(t *testing.T) *forumFixture {
	t.Helper()

	directory := &testDirectory{subjects: map[string]*testSubject{
		"owner":    {id: "owner"},
		"member":   {id: "member"},
		"stranger": {id: "stranger"},
		"drifter":  {id: "drifter"},
		"banned":   {id: "banned"},
		"gbanned":  {id: "gbanned", banned: true},
		"operator": {id: "operator", admin: true},
	}}
	realms := &testRealmSource{realms: map[string]*testRealm{
		"p1": {id: "p1", owner: "owner", members: []string{"member"}, banned: []string{"banned"}},
	}}

	repo := newFakeForumRepo()
	service := forum.NewService(repo, perm.NewEngine(directory, realms))

	forumID, err := service.Create(context.Background(), "p1", "owner", "General")
	require.NoError(t, err)

	return &forumFixture{service: service, repo: repo, forumID: forumID}
}

func (fixture *forumFixture) post(t *testing.T, author, title string) *forum.Post {
	t.Helper()
	post, err := fixture.service.CreatePost(context.Background(), author, fixture.forumID, forum.PostInput{
		Title: title,
		Body:  "body of " + title,
		Tags:  []string{"general"},
	})
	require.NoError(t, err)
	return post
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
	assert.Equal(t, component.KindForum, fixture.service.Kind())
}

func TestPosting(t *testing.T) {
	fixture := newFixture(t)
	ctx := context.Background()

	t.Run("strangers_post_on_public_planets", func(t *testing.T) {
		post := fixture.post(t, "stranger", "Hello")
		assert.Equal(t, "stranger", post.AuthorID)
	})

	t.Run("planet_banned_cannot_post", func(t *testing.T) {
		_, err := fixture.service.CreatePost(ctx, "banned", fixture.forumID, forum.PostInput{Title: "x", Body: "y"})
		requireCode(t, err, "FORBIDDEN")
	})

	t.Run("globally_banned_cannot_post", func(t *testing.T) {
		_, err := fixture.service.CreatePost(ctx, "gbanned", fixture.forumID, forum.PostInput{Title: "x", Body: "y"})
		requireCode(t, err, "FORBIDDEN")
	})

	t.Run("anonymous_cannot_post", func(t *testing.T) {
		_, err := fixture.service.CreatePost(ctx, "", fixture.forumID, forum.PostInput{Title: "x", Body: "y"})
		requireCode(t, err, "UNAUTHORIZED")
	})
}

func TestPostOwnership(t *testing.T) {
	fixture := newFixture(t)
	ctx := context.Background()
	post := fixture.post(t, "stranger", "Mine")

	t.Run("author_edits", func(t *testing.T) {
		updated, err := fixture.service.UpdatePost(ctx, "stranger", post.ID, forum.PostInput{
			Title: "Mine (edited)", Body: "new body",
		})
		require.NoError(t, err)
		assert.Equal(t, "Mine (edited)", updated.Title)
	})

	t.Run("others_cannot_edit", func(t *testing.T) {
		_, err := fixture.service.UpdatePost(ctx, "drifter", post.ID, forum.PostInput{Title: "hijack", Body: "x"})
		requireCode(t, err, "FORBIDDEN")
	})

	// Membership alone grants moderation, not just ownership.
	t.Run("moderator_edits", func(t *testing.T) {
		_, err := fixture.service.UpdatePost(ctx, "member", post.ID, forum.PostInput{Title: "Cleaned", Body: "x"})
		require.NoError(t, err)
	})

	t.Run("author_deletes", func(t *testing.T) {
		doomed := fixture.post(t, "stranger", "Doomed")
		require.NoError(t, fixture.service.DeletePost(ctx, "stranger", doomed.ID))
	})
}

func TestLocking(t *testing.T) {
	fixture := newFixture(t)
	ctx := context.Background()
	post := fixture.post(t, "stranger", "Hot Topic")

	t.Run("only_moderators_lock", func(t *testing.T) {
		err := fixture.service.SetLocked(ctx, "stranger", post.ID, true)
		requireCode(t, err, "FORBIDDEN")
		require.NoError(t, fixture.service.SetLocked(ctx, "owner", post.ID, true))
	})

	t.Run("locked_refuses_replies", func(t *testing.T) {
		_, err := fixture.service.CreateReply(ctx, "stranger", post.ID, "me too")
		requireCode(t, err, "FORBIDDEN")
	})

	t.Run("locked_refuses_author_edits", func(t *testing.T) {
		_, err := fixture.service.UpdatePost(ctx, "stranger", post.ID, forum.PostInput{Title: "sneaky", Body: "x"})
		requireCode(t, err, "FORBIDDEN")
	})

	// Planet members hold the full moderation tier on locked posts too.
	t.Run("moderators_still_reply", func(t *testing.T) {
		_, err := fixture.service.CreateReply(ctx, "member", post.ID, "final word")
		require.NoError(t, err)
	})

	t.Run("sticky_sorts_first", func(t *testing.T) {
		other := fixture.post(t, "member", "AAA Ordinary")
		_ = other
		require.NoError(t, fixture.service.SetStickied(ctx, "owner", post.ID, true))

		posts, _, err := fixture.service.ListPosts(ctx, "", fixture.forumID, pagination.Params{Page: 1, Limit: 10}, "")
		require.NoError(t, err)
		require.NotEmpty(t, posts)
		assert.Equal(t, post.ID, posts[0].ID)
	})
}

func TestReplies(t *testing.T) {
	fixture := newFixture(t)
	ctx := context.Background()
	post := fixture.post(t, "member", "Thread")

	reply, err := fixture.service.CreateReply(ctx, "stranger", post.ID, "first!")
	require.NoError(t, err)

	t.Run("listed_in_thread", func(t *testing.T) {
		got, replies, err := fixture.service.GetPost(ctx, "", post.ID)
		require.NoError(t, err)
		assert.Equal(t, post.ID, got.ID)
		require.Len(t, replies, 1)
		assert.Equal(t, "first!", replies[0].Body)
	})

	t.Run("author_deletes_own", func(t *testing.T) {
		require.NoError(t, fixture.service.DeleteReply(ctx, "stranger", reply.ID))
	})

	t.Run("moderator_deletes_any", func(t *testing.T) {
		other, err := fixture.service.CreateReply(ctx, "stranger", post.ID, "spam")
		require.NoError(t, err)

		// A bystander may not touch it; a planet member moderates it away.
		err = fixture.service.DeleteReply(ctx, "drifter", other.ID)
		requireCode(t, err, "FORBIDDEN")
		require.NoError(t, fixture.service.DeleteReply(ctx, "member", other.ID))
	})
}

func TestReactions(t *testing.T) {
	fixture := newFixture(t)
	ctx := context.Background()
	post := fixture.post(t, "member", "React Here")

	t.Run("toggle_on_off", func(t *testing.T) {
		reacted, err := fixture.service.TogglePostReaction(ctx, "stranger", post.ID, "🚀")
		require.NoError(t, err)
		assert.True(t, reacted)

		got, _, err := fixture.service.GetPost(ctx, "", post.ID)
		require.NoError(t, err)
		require.Len(t, got.Reactions, 1)
		assert.Equal(t, 1, got.Reactions[0].Count)

		// The sole reactor toggles off; the aggregate disappears entirely.
		reacted, err = fixture.service.TogglePostReaction(ctx, "stranger", post.ID, "🚀")
		require.NoError(t, err)
		assert.False(t, reacted)

		got, _, err = fixture.service.GetPost(ctx, "", post.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Reactions)
	})

	t.Run("counts_accumulate_per_emoji", func(t *testing.T) {
		for _, user := range []string{"owner", "member", "stranger"} {
			_, err := fixture.service.TogglePostReaction(ctx, user, post.ID, "⭐")
			require.NoError(t, err)
		}
		_, err := fixture.service.TogglePostReaction(ctx, "owner", post.ID, "🔥")
		require.NoError(t, err)

		got, _, err := fixture.service.GetPost(ctx, "", post.ID)
		require.NoError(t, err)
		require.Len(t, got.Reactions, 2)
		assert.Contains(t, got.Reactions, forum.ReactionCount{Emoji: "⭐", Count: 3})
		assert.Contains(t, got.Reactions, forum.ReactionCount{Emoji: "🔥", Count: 1})
	})

	t.Run("banned_cannot_react", func(t *testing.T) {
		_, err := fixture.service.TogglePostReaction(ctx, "banned", post.ID, "⭐")
		requireCode(t, err, "FORBIDDEN")
	})
}

func TestTagFilter(t *testing.T) {
	fixture := newFixture(t)
	ctx := context.Background()

	tagged, err := fixture.service.CreatePost(ctx, "member", fixture.forumID, forum.PostInput{
		Title: "Release Notes", Body: "v2", Tags: []string{"announcement"},
	})
	require.NoError(t, err)
	fixture.post(t, "member", "Chatter")

	posts, total, err := fixture.service.ListPosts(ctx, "", fixture.forumID, pagination.Params{Page: 1, Limit: 10}, "announcement")
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, posts, 1)
	assert.Equal(t, tagged.ID, posts[0].ID)
}

func TestCascade(t *testing.T) {
	fixture := newFixture(t)
	ctx := context.Background()

	post := fixture.post(t, "member", "Doomed Thread")
	_, err := fixture.service.CreateReply(ctx, "stranger", post.ID, "bye")
	require.NoError(t, err)
	_, err = fixture.service.TogglePostReaction(ctx, "owner", post.ID, "⭐")
	require.NoError(t, err)

	require.NoError(t, fixture.service.Delete(ctx, fixture.forumID))
	assert.Empty(t, fixture.repo.posts)
	assert.Empty(t, fixture.repo.replies)
	assert.Empty(t, fixture.repo.reactions)
}
