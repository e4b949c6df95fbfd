// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package chat_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starbasehq/starbase/internal/component"
	"github.com/starbasehq/starbase/internal/component/chat"
	"github.com/starbasehq/starbase/internal/perm"
	"github.com/starbasehq/starbase/internal/platform/apperr"
	"github.com/starbasehq/starbase/internal/pubsub"
	"github.com/starbasehq/starbase/pkg/pagination"
)

// # Test Doubles

type fakeChatRepo struct {
	chats    map[string]*chat.Chat
	channels map[string]*chat.Channel
	messages map[string]*chat.Message

	// reactions is keyed by messageID, then userID+"/"+emoji.
	reactions map[string]map[string]bool

	// directErr, when set, fails every FindDirectChannel call.
	directErr error
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{
		chats:     make(map[string]*chat.Chat),
		channels:  make(map[string]*chat.Channel),
		messages:  make(map[string]*chat.Message),
		reactions: make(map[string]map[string]bool),
	}
}

func (repo *fakeChatRepo) CreateChat(_ context.Context, c *chat.Chat) error {
	repo.chats[c.ID] = c
	return nil
}

func (repo *fakeChatRepo) FindChatByID(_ context.Context, id string) (*chat.Chat, error) {
	c, ok := repo.chats[id]
	if !ok {
		return nil, apperr.NotFound("Chat")
	}
	return c, nil
}

func (repo *fakeChatRepo) DeleteChat(_ context.Context, id string) error {
	delete(repo.chats, id)
	for channelID, channel := range repo.channels {
		if channel.ChatID == id {
			_ = repo.DeleteChannel(context.Background(), channelID)
		}
	}
	return nil
}

func (repo *fakeChatRepo) CreateChannel(_ context.Context, channel *chat.Channel) error {
	repo.channels[channel.ID] = channel
	return nil
}

func (repo *fakeChatRepo) FindChannelByID(_ context.Context, id string) (*chat.Channel, error) {
	channel, ok := repo.channels[id]
	if !ok {
		return nil, apperr.NotFound("Channel")
	}
	return channel, nil
}

func (repo *fakeChatRepo) FindManyChannels(_ context.Context, ids []string) (map[string]*chat.Channel, error) {
	found := make(map[string]*chat.Channel)
	for _, id := range ids {
		if channel, ok := repo.channels[id]; ok {
			found[id] = channel
		}
	}
	return found, nil
}

func (repo *fakeChatRepo) ListChannels(_ context.Context, chatID string) ([]*chat.Channel, error) {
	var channels []*chat.Channel
	for _, channel := range repo.channels {
		if channel.ChatID == chatID {
			channels = append(channels, channel)
		}
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i].ID < channels[j].ID })
	return channels, nil
}

func (repo *fakeChatRepo) FindDirectChannel(_ context.Context, userIDs []string) (*chat.Channel, error) {
	if repo.directErr != nil {
		return nil, repo.directErr
	}
	for _, channel := range repo.channels {
		if channel.Kind == chat.ChannelDirect && equalSets(channel.UserIDs, userIDs) {
			return channel, nil
		}
	}
	return nil, apperr.NotFound("Channel")
}

func (repo *fakeChatRepo) ListDirectChannels(_ context.Context, userID string) ([]*chat.Channel, error) {
	var channels []*chat.Channel
	for _, channel := range repo.channels {
		if channel.Kind == chat.ChannelDirect && channel.HasParticipant(userID) {
			channels = append(channels, channel)
		}
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i].ID < channels[j].ID })
	return channels, nil
}

func (repo *fakeChatRepo) DeleteChannel(_ context.Context, id string) error {
	delete(repo.channels, id)
	for messageID, message := range repo.messages {
		if message.ChannelID == id {
			delete(repo.messages, messageID)
		}
	}
	return nil
}

func (repo *fakeChatRepo) CreateMessage(_ context.Context, message *chat.Message) error {
	repo.messages[message.ID] = message
	return nil
}

func (repo *fakeChatRepo) FindMessageByID(_ context.Context, id string) (*chat.Message, error) {
	message, ok := repo.messages[id]
	if !ok {
		return nil, apperr.NotFound("Message")
	}
	return message, nil
}

func (repo *fakeChatRepo) FindManyMessages(_ context.Context, ids []string) (map[string]*chat.Message, error) {
	found := make(map[string]*chat.Message)
	for _, id := range ids {
		if message, ok := repo.messages[id]; ok {
			found[id] = message
		}
	}
	return found, nil
}

func (repo *fakeChatRepo) ListMessages(_ context.Context, channelID string, _ pagination.Params) ([]*chat.Message, int, error) {
	var messages []*chat.Message
	for _, message := range repo.messages {
		if message.ChannelID == channelID {
			messages = append(messages, message)
		}
	}
	sort.Slice(messages, func(i, j int) bool { return messages[i].ID > messages[j].ID })
	return messages, len(messages), nil
}

func (repo *fakeChatRepo) UpdateMessage(_ context.Context, message *chat.Message) error {
	if _, ok := repo.messages[message.ID]; !ok {
		return apperr.NotFound("Message")
	}
	repo.messages[message.ID] = message
	return nil
}

func (repo *fakeChatRepo) DeleteMessage(_ context.Context, id string) error {
	delete(repo.messages, id)
	return nil
}

func (repo *fakeChatRepo) ToggleReaction(_ context.Context, messageID, userID, emoji string) (bool, error) {
	key := userID + "/" + emoji
	if repo.reactions[messageID][key] {
		delete(repo.reactions[messageID], key)
		return false, nil
	}
	if repo.reactions[messageID] == nil {
		repo.reactions[messageID] = make(map[string]bool)
	}
	repo.reactions[messageID][key] = true
	return true, nil
}

func (repo *fakeChatRepo) ListReactions(_ context.Context, messageID string) ([]chat.ReactionCount, error) {
	totals := make(map[string]int)
	for key := range repo.reactions[messageID] {
		emoji := key[strings.IndexByte(key, '/')+1:]
		totals[emoji]++
	}
	counts := make([]chat.ReactionCount, 0, len(totals))
	for emoji, count := range totals {
		counts = append(counts, chat.ReactionCount{Emoji: emoji, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Emoji < counts[j].Emoji })
	return counts, nil
}

func equalSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// fakeBroker records published events; fail makes every publish error.
type fakeBroker struct {
	mu     sync.Mutex
	events []pubsub.Event
	fail   bool
}

func (broker *fakeBroker) Publish(_ context.Context, topic string, payload []byte) error {
	broker.mu.Lock()
	defer broker.mu.Unlock()
	if broker.fail {
		return errors.New("broker down")
	}
	if topic != pubsub.TopicMessages {
		return nil
	}
	var event pubsub.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return err
	}
	broker.events = append(broker.events, event)
	return nil
}

func (broker *fakeBroker) Subscribe(context.Context, string) (pubsub.Subscription, error) {
	return nil, errors.New("not implemented")
}

func (broker *fakeBroker) Close() error { return nil }

func (broker *fakeBroker) published() []pubsub.Event {
	broker.mu.Lock()
	defer broker.mu.Unlock()
	return append([]pubsub.Event(nil), broker.events...)
}

// fakeNotifier records recipient ids per Notify call.
type fakeNotifier struct {
	recipients []string
}

func (notifier *fakeNotifier) Notify(_ context.Context, recipientID, _, _, _ string) error {
	notifier.recipients = append(notifier.recipients, recipientID)
	return nil
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

type chatFixture struct {
	service  *chat.Service
	repo     *fakeChatRepo
	broker   *fakeBroker
	notifier *fakeNotifier
	realms   *testRealmSource

	chatID  string
	general string

	// secretChatID and secret live on the private planet "p2".
	secretChatID string
	secret       string
}

// newFixture builds a chat on public planet "p1" (owner "owner", member
// "member", planet-banned "banned") and one on private planet "p2" (same
// owner and member). "alice" and "bob" are bystanders who belong to nothing.
func newFixture(t *testing.T) *chatFixture {
	t.Helper()

	directory := &testDirectory{subjects: map[string]*testSubject{
		"owner":    {id: "owner"},
		"member":   {id: "member"},
		"stranger": {id: "stranger"},
		"banned":   {id: "banned"},
		"alice":    {id: "alice"},
		"bob":      {id: "bob"},
	}}
	realms := &testRealmSource{realms: map[string]*testRealm{
		"p1": {id: "p1", owner: "owner", members: []string{"member"}, banned: []string{"banned"}},
		"p2": {id: "p2", owner: "owner", private: true, members: []string{"member"}},
	}}

	repo := newFakeChatRepo()
	broker := &fakeBroker{}
	notifier := &fakeNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := chat.NewService(repo, perm.NewEngine(directory, realms), broker, notifier, logger)

	chatID, err := service.Create(context.Background(), "p1", "owner", "Crew Chat")
	require.NoError(t, err)
	channels, err := service.ListChannels(context.Background(), "owner", chatID)
	require.NoError(t, err)
	require.Len(t, channels, 1)

	secretChatID, err := service.Create(context.Background(), "p2", "owner", "Inner Circle")
	require.NoError(t, err)
	secretChannels, err := service.ListChannels(context.Background(), "owner", secretChatID)
	require.NoError(t, err)
	require.Len(t, secretChannels, 1)

	return &chatFixture{
		service:      service,
		repo:         repo,
		broker:       broker,
		notifier:     notifier,
		realms:       realms,
		chatID:       chatID,
		general:      channels[0].ID,
		secretChatID: secretChatID,
		secret:       secretChannels[0].ID,
	}
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
	assert.Equal(t, component.KindChat, fixture.service.Kind())
}

func TestDefaultChannel(t *testing.T) {
	fixture := newFixture(t)

	channels, err := fixture.service.ListChannels(context.Background(), "member", fixture.chatID)
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, "general", channels[0].Name)
	assert.Equal(t, chat.ChannelPlanet, channels[0].Kind)
	assert.Equal(t, "p1", channels[0].PlanetID)
}

func TestChannelManagement(t *testing.T) {
	fixture := newFixture(t)
	ctx := context.Background()

	t.Run("strangers_cannot_see_private_chats", func(t *testing.T) {
		_, err := fixture.service.ListChannels(ctx, "stranger", fixture.secretChatID)
		requireCode(t, err, "NOT_FOUND")
	})

	t.Run("members_see_private_chats", func(t *testing.T) {
		channels, err := fixture.service.ListChannels(ctx, "member", fixture.secretChatID)
		require.NoError(t, err)
		assert.Len(t, channels, 1)
	})

	t.Run("strangers_cannot_create_channels", func(t *testing.T) {
		_, err := fixture.service.CreateChannel(ctx, "stranger", fixture.chatID, "lounge")
		requireCode(t, err, "FORBIDDEN")
	})

	t.Run("members_create_channels_lowercased", func(t *testing.T) {
		channel, err := fixture.service.CreateChannel(ctx, "member", fixture.chatID, "Lounge")
		require.NoError(t, err)
		assert.Equal(t, "lounge", channel.Name)

		channels, err := fixture.service.ListChannels(ctx, "owner", fixture.chatID)
		require.NoError(t, err)
		assert.Len(t, channels, 2)
	})

	t.Run("strangers_cannot_delete_channels", func(t *testing.T) {
		err := fixture.service.DeleteChannel(ctx, "stranger", fixture.general)
		requireCode(t, err, "FORBIDDEN")
	})

	t.Run("owner_deletes_channel_with_messages", func(t *testing.T) {
		channel, err := fixture.service.CreateChannel(ctx, "owner", fixture.chatID, "doomed")
		require.NoError(t, err)
		message, err := fixture.service.SendMessage(ctx, "member", channel.ID, "soon gone")
		require.NoError(t, err)

		require.NoError(t, fixture.service.DeleteChannel(ctx, "owner", channel.ID))

		_, _, err = fixture.service.ListMessages(ctx, "member", channel.ID, pagination.Params{Page: 1, Limit: 10})
		requireCode(t, err, "NOT_FOUND")
		_, err = fixture.repo.FindMessageByID(ctx, message.ID)
		requireCode(t, err, "NOT_FOUND")
	})
}

func TestDirectChannels(t *testing.T) {
	fixture := newFixture(t)
	ctx := context.Background()

	t.Run("needs_another_participant", func(t *testing.T) {
		_, err := fixture.service.OpenDirectChannel(ctx, "alice", []string{"alice", ""})
		requireCode(t, err, "VALIDATION_ERROR")
	})

	t.Run("unknown_participant_refused", func(t *testing.T) {
		_, err := fixture.service.OpenDirectChannel(ctx, "alice", []string{"ghost"})
		requireCode(t, err, "NOT_FOUND")
	})

	t.Run("same_set_reuses_channel", func(t *testing.T) {
		first, err := fixture.service.OpenDirectChannel(ctx, "alice", []string{"bob"})
		require.NoError(t, err)
		assert.Equal(t, chat.ChannelDirect, first.Kind)
		assert.Equal(t, []string{"alice", "bob"}, first.UserIDs)

		// Caller is implied, duplicates collapse, order does not matter.
		second, err := fixture.service.OpenDirectChannel(ctx, "bob", []string{"alice", "bob", "alice"})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("participants_list_their_channels", func(t *testing.T) {
		channels, err := fixture.service.ListDirectChannels(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, channels, 1)

		channels, err = fixture.service.ListDirectChannels(ctx, "stranger")
		require.NoError(t, err)
		assert.Empty(t, channels)
	})

	t.Run("outsiders_cannot_read_direct_history", func(t *testing.T) {
		channel, err := fixture.service.OpenDirectChannel(ctx, "alice", []string{"bob"})
		require.NoError(t, err)

		_, _, err = fixture.service.ListMessages(ctx, "stranger", channel.ID, pagination.Params{Page: 1, Limit: 10})
		requireCode(t, err, "NOT_FOUND")
		_, _, err = fixture.service.ListMessages(ctx, "", channel.ID, pagination.Params{Page: 1, Limit: 10})
		requireCode(t, err, "NOT_FOUND")
	})

	t.Run("store_failure_does_not_create_duplicates", func(t *testing.T) {
		fixture.repo.directErr = apperr.Store(errors.New("redis down"))
		defer func() { fixture.repo.directErr = nil }()

		before := len(fixture.repo.channels)
		_, err := fixture.service.OpenDirectChannel(ctx, "alice", []string{"bob"})
		requireCode(t, err, "STORE_ERROR")
		assert.Len(t, fixture.repo.channels, before)
	})

	t.Run("direct_channels_cannot_be_deleted", func(t *testing.T) {
		channel, err := fixture.service.OpenDirectChannel(ctx, "alice", []string{"bob"})
		require.NoError(t, err)

		err = fixture.service.DeleteChannel(ctx, "alice", channel.ID)
		requireCode(t, err, "VALIDATION_ERROR")
	})
}

func TestMessaging(t *testing.T) {
	fixture := newFixture(t)
	ctx := context.Background()

	t.Run("strangers_send_on_public_planets", func(t *testing.T) {
		message, err := fixture.service.SendMessage(ctx, "stranger", fixture.general, "hello crew")
		require.NoError(t, err)
		assert.Equal(t, "stranger", message.AuthorID)
		assert.Equal(t, "p1", message.PlanetID)
		assert.Nil(t, message.EditedAt)
	})

	t.Run("banned_cannot_send", func(t *testing.T) {
		_, err := fixture.service.SendMessage(ctx, "banned", fixture.general, "let me in")
		requireCode(t, err, "FORBIDDEN")
	})

	t.Run("strangers_cannot_send_on_private_planets", func(t *testing.T) {
		_, err := fixture.service.SendMessage(ctx, "stranger", fixture.secret, "hi")
		requireCode(t, err, "NOT_FOUND")
	})

	t.Run("anonymous_cannot_send", func(t *testing.T) {
		_, err := fixture.service.SendMessage(ctx, "", fixture.general, "hi")
		requireCode(t, err, "UNAUTHORIZED")
	})

	t.Run("author_edits", func(t *testing.T) {
		message, err := fixture.service.SendMessage(ctx, "member", fixture.general, "typo")
		require.NoError(t, err)

		updated, err := fixture.service.EditMessage(ctx, "member", message.ID, "fixed")
		require.NoError(t, err)
		assert.Equal(t, "fixed", updated.Content)
		require.NotNil(t, updated.EditedAt)
	})

	t.Run("only_author_edits", func(t *testing.T) {
		message, err := fixture.service.SendMessage(ctx, "member", fixture.general, "mine")
		require.NoError(t, err)

		_, err = fixture.service.EditMessage(ctx, "owner", message.ID, "hijack")
		requireCode(t, err, "FORBIDDEN")
	})

	t.Run("moderator_removes_planet_messages", func(t *testing.T) {
		message, err := fixture.service.SendMessage(ctx, "member", fixture.general, "off topic")
		require.NoError(t, err)

		require.NoError(t, fixture.service.RemoveMessage(ctx, "owner", message.ID))
		_, err = fixture.repo.FindMessageByID(ctx, message.ID)
		requireCode(t, err, "NOT_FOUND")
	})

	t.Run("strangers_cannot_remove_others_messages", func(t *testing.T) {
		message, err := fixture.service.SendMessage(ctx, "owner", fixture.general, "announcement")
		require.NoError(t, err)

		err = fixture.service.RemoveMessage(ctx, "stranger", message.ID)
		requireCode(t, err, "FORBIDDEN")
	})

	t.Run("direct_messages_have_no_moderators", func(t *testing.T) {
		channel, err := fixture.service.OpenDirectChannel(ctx, "alice", []string{"bob"})
		require.NoError(t, err)
		message, err := fixture.service.SendMessage(ctx, "alice", channel.ID, "just us")
		require.NoError(t, err)

		err = fixture.service.RemoveMessage(ctx, "bob", message.ID)
		requireCode(t, err, "FORBIDDEN")

		require.NoError(t, fixture.service.RemoveMessage(ctx, "alice", message.ID))
	})
}

func TestFanOut(t *testing.T) {
	fixture := newFixture(t)
	ctx := context.Background()

	message, err := fixture.service.SendMessage(ctx, "member", fixture.general, "v1")
	require.NoError(t, err)
	_, err = fixture.service.EditMessage(ctx, "member", message.ID, "v2")
	require.NoError(t, err)
	require.NoError(t, fixture.service.RemoveMessage(ctx, "member", message.ID))

	events := fixture.broker.published()
	require.Len(t, events, 3)

	assert.Equal(t, pubsub.KindMessageSent, events[0].Kind)
	assert.Equal(t, pubsub.KindMessageUpdated, events[1].Kind)
	assert.Equal(t, pubsub.KindMessageRemoved, events[2].Kind)

	for _, event := range events {
		assert.Equal(t, fixture.general, event.ChannelID)
		assert.Equal(t, "p1", event.PlanetID)
		assert.False(t, event.At.IsZero())
	}

	var sent chat.Message
	require.NoError(t, json.Unmarshal(events[0].Entity, &sent))
	assert.Equal(t, message.ID, sent.ID)
	assert.Equal(t, "v1", sent.Content)
}

func TestFanOutSurvivesBrokerFailure(t *testing.T) {
	fixture := newFixture(t)
	fixture.broker.fail = true

	message, err := fixture.service.SendMessage(context.Background(), "member", fixture.general, "still stored")
	require.NoError(t, err)

	stored, err := fixture.repo.FindMessageByID(context.Background(), message.ID)
	require.NoError(t, err)
	assert.Equal(t, "still stored", stored.Content)
}

func TestDirectMessageNotifications(t *testing.T) {
	fixture := newFixture(t)
	ctx := context.Background()

	channel, err := fixture.service.OpenDirectChannel(ctx, "alice", []string{"bob"})
	require.NoError(t, err)

	_, err = fixture.service.SendMessage(ctx, "alice", channel.ID, "ping")
	require.NoError(t, err)

	// Only the other participant is notified, never the author.
	assert.Equal(t, []string{"bob"}, fixture.notifier.recipients)

	fixture.notifier.recipients = nil
	_, err = fixture.service.SendMessage(ctx, "member", fixture.general, "planet traffic")
	require.NoError(t, err)
	assert.Empty(t, fixture.notifier.recipients)
}

func TestMessageReactions(t *testing.T) {
	fixture := newFixture(t)
	ctx := context.Background()

	message, err := fixture.service.SendMessage(ctx, "member", fixture.general, "react to this")
	require.NoError(t, err)

	t.Run("anonymous_cannot_react", func(t *testing.T) {
		_, err := fixture.service.ToggleMessageReaction(ctx, "", message.ID, "🚀")
		requireCode(t, err, "UNAUTHORIZED")
	})

	t.Run("banned_cannot_react", func(t *testing.T) {
		_, err := fixture.service.ToggleMessageReaction(ctx, "banned", message.ID, "🚀")
		requireCode(t, err, "FORBIDDEN")
	})

	t.Run("toggle_adds_then_removes", func(t *testing.T) {
		reacted, err := fixture.service.ToggleMessageReaction(ctx, "stranger", message.ID, "🚀")
		require.NoError(t, err)
		assert.True(t, reacted)

		counts, err := fixture.service.ListMessageReactions(ctx, "stranger", message.ID)
		require.NoError(t, err)
		require.Len(t, counts, 1)
		assert.Equal(t, chat.ReactionCount{Emoji: "🚀", Count: 1}, counts[0])

		// A sole reactor toggling again removes the reaction entirely.
		reacted, err = fixture.service.ToggleMessageReaction(ctx, "stranger", message.ID, "🚀")
		require.NoError(t, err)
		assert.False(t, reacted)

		counts, err = fixture.service.ListMessageReactions(ctx, "stranger", message.ID)
		require.NoError(t, err)
		assert.Empty(t, counts)
	})

	t.Run("counts_aggregate_per_emoji", func(t *testing.T) {
		for _, userID := range []string{"member", "owner"} {
			_, err := fixture.service.ToggleMessageReaction(ctx, userID, message.ID, "👍")
			require.NoError(t, err)
		}
		_, err := fixture.service.ToggleMessageReaction(ctx, "member", message.ID, "🎉")
		require.NoError(t, err)

		counts, err := fixture.service.ListMessageReactions(ctx, "", message.ID)
		require.NoError(t, err)
		assert.Equal(t, []chat.ReactionCount{
			{Emoji: "🎉", Count: 1},
			{Emoji: "👍", Count: 2},
		}, counts)
	})

	t.Run("direct_channels_stay_private", func(t *testing.T) {
		channel, err := fixture.service.OpenDirectChannel(ctx, "alice", []string{"bob"})
		require.NoError(t, err)
		direct, err := fixture.service.SendMessage(ctx, "alice", channel.ID, "just us")
		require.NoError(t, err)

		_, err = fixture.service.ToggleMessageReaction(ctx, "stranger", direct.ID, "👀")
		requireCode(t, err, "NOT_FOUND")
		_, err = fixture.service.ListMessageReactions(ctx, "stranger", direct.ID)
		requireCode(t, err, "NOT_FOUND")

		reacted, err := fixture.service.ToggleMessageReaction(ctx, "bob", direct.ID, "👀")
		require.NoError(t, err)
		assert.True(t, reacted)
	})
}

func TestCanFollowChannel(t *testing.T) {
	fixture := newFixture(t)
	ctx := context.Background()

	t.Run("public_channels_are_open", func(t *testing.T) {
		assert.True(t, fixture.service.CanFollowChannel(ctx, "stranger", fixture.general))
		assert.True(t, fixture.service.CanFollowChannel(ctx, "", fixture.general))
	})

	t.Run("private_channels_follow_read_tier", func(t *testing.T) {
		assert.True(t, fixture.service.CanFollowChannel(ctx, "member", fixture.secret))
		assert.False(t, fixture.service.CanFollowChannel(ctx, "stranger", fixture.secret))
		assert.False(t, fixture.service.CanFollowChannel(ctx, "", fixture.secret))
	})

	t.Run("direct_channel_requires_participation", func(t *testing.T) {
		channel, err := fixture.service.OpenDirectChannel(ctx, "alice", []string{"bob"})
		require.NoError(t, err)

		assert.True(t, fixture.service.CanFollowChannel(ctx, "alice", channel.ID))
		assert.False(t, fixture.service.CanFollowChannel(ctx, "owner", channel.ID))
	})

	t.Run("revoked_membership_stops_delivery", func(t *testing.T) {
		require.True(t, fixture.service.CanFollowChannel(ctx, "member", fixture.secret))

		fixture.realms.realms["p2"].members = nil
		assert.False(t, fixture.service.CanFollowChannel(ctx, "member", fixture.secret))
	})
}

func TestCascade(t *testing.T) {
	fixture := newFixture(t)
	ctx := context.Background()

	_, err := fixture.service.SendMessage(ctx, "member", fixture.general, "doomed")
	require.NoError(t, err)

	require.NoError(t, fixture.service.Delete(ctx, fixture.chatID))

	_, err = fixture.repo.FindChatByID(ctx, fixture.chatID)
	requireCode(t, err, "NOT_FOUND")
	_, err = fixture.repo.FindChannelByID(ctx, fixture.general)
	requireCode(t, err, "NOT_FOUND")
	assert.Empty(t, fixture.repo.messages)

	// The other planet's chat is untouched.
	_, err = fixture.repo.FindChatByID(ctx, fixture.secretChatID)
	require.NoError(t, err)
}
