// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package main

import (
	"context"

	"github.com/starbasehq/starbase/internal/component/chat"
	"github.com/starbasehq/starbase/internal/component/files"
	"github.com/starbasehq/starbase/internal/component/forum"
	"github.com/starbasehq/starbase/internal/loader"
	"github.com/starbasehq/starbase/internal/perm"
	"github.com/starbasehq/starbase/internal/planet"
	"github.com/starbasehq/starbase/internal/users/auth"
)

// # Permission Directories

// The permission engine works on narrow Subject/Realm views. The domain
// entities implement those views directly; these adapters only bridge the
// repository return types to the interfaces.

// subjectDirectory resolves user ids for the permission engine.
type subjectDirectory struct {
	users auth.UserRepository
}

func (directory subjectDirectory) FindSubject(ctx context.Context, id string) (perm.Subject, error) {
	user, err := directory.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// realmDirectory resolves planet ids for the permission engine.
type realmDirectory struct {
	planets planet.PlanetRepository
}

func (directory realmDirectory) FindRealm(ctx context.Context, id string) (perm.Realm, error) {
	found, err := directory.planets.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return found, nil
}

// # Storage Accounting

// quotaAdapter exposes the account store's byte counter to the file
// lifecycle without handing it the whole user repository.
type quotaAdapter struct {
	users auth.UserRepository
}

func (adapter quotaAdapter) Usage(ctx context.Context, userID string) (int64, bool, error) {
	user, err := adapter.users.FindByID(ctx, userID)
	if err != nil {
		return 0, false, err
	}
	return user.UsedBytes, user.CapWaived, nil
}

func (adapter quotaAdapter) AddUsedBytes(ctx context.Context, userID string, delta int64) error {
	return adapter.users.AddUsedBytes(ctx, userID, delta)
}

// # Loader Sources

// newLoaderSources builds the per-request batch fetchers over the domain
// repositories. Each source maps the full entity down to the public-safe
// projection the response assembly layer is allowed to see.
func newLoaderSources(
	users auth.UserRepository,
	planets planet.PlanetRepository,
	chats chat.ChatRepository,
	forums forum.ForumRepository,
	fileObjects files.FileRepository,
) loader.SourceSet {
	return loader.SourceSet{
		Users: func(ctx context.Context, ids []string) (map[string]loader.User, error) {
			accounts, err := users.FindManyByIDs(ctx, ids)
			if err != nil {
				return nil, err
			}
			views := make(map[string]loader.User, len(accounts))
			for id, account := range accounts {
				views[id] = loader.User{
					ID:          account.ID,
					Username:    account.Username,
					DisplayName: account.DisplayName,
					AvatarURL:   account.AvatarURL,
					Admin:       account.IsAdmin(),
					Banned:      account.Banned,
					CreatedAt:   account.CreatedAt,
				}
			}
			return views, nil
		},

		Planets: func(ctx context.Context, ids []string) (map[string]loader.Planet, error) {
			found, err := planets.FindManyByIDs(ctx, ids)
			if err != nil {
				return nil, err
			}
			views := make(map[string]loader.Planet, len(found))
			for id, entry := range found {
				views[id] = loader.Planet{
					ID:        entry.ID,
					Name:      entry.Name,
					OwnerID:   entry.Owner,
					Private:   entry.Private,
					Featured:  entry.Featured,
					Verified:  entry.Verified,
					Partnered: entry.Partnered,
					CreatedAt: entry.CreatedAt,
				}
			}
			return views, nil
		},

		Components: func(ctx context.Context, ids []string) (map[string]loader.Component, error) {
			attached, err := planets.FindManyComponents(ctx, ids)
			if err != nil {
				return nil, err
			}
			views := make(map[string]loader.Component, len(attached))
			for id, entry := range attached {
				views[id] = loader.Component{
					ID:       entry.Ref.ComponentID,
					Kind:     string(entry.Ref.Kind),
					Name:     entry.Ref.Name,
					PlanetID: entry.PlanetID,
				}
			}
			return views, nil
		},

		Channels: func(ctx context.Context, ids []string) (map[string]loader.Channel, error) {
			channels, err := chats.FindManyChannels(ctx, ids)
			if err != nil {
				return nil, err
			}
			views := make(map[string]loader.Channel, len(channels))
			for id, channel := range channels {
				views[id] = loader.Channel{
					ID:       channel.ID,
					Kind:     string(channel.Kind),
					Name:     channel.Name,
					ChatID:   channel.ChatID,
					PlanetID: channel.PlanetID,
					UserIDs:  channel.UserIDs,
				}
			}
			return views, nil
		},

		Messages: func(ctx context.Context, ids []string) (map[string]loader.Message, error) {
			messages, err := chats.FindManyMessages(ctx, ids)
			if err != nil {
				return nil, err
			}
			views := make(map[string]loader.Message, len(messages))
			for id, message := range messages {
				views[id] = loader.Message{
					ID:        message.ID,
					ChannelID: message.ChannelID,
					AuthorID:  message.AuthorID,
					Content:   message.Content,
					Edited:    message.EditedAt != nil,
					CreatedAt: message.CreatedAt,
				}
			}
			return views, nil
		},

		Posts: func(ctx context.Context, ids []string) (map[string]loader.Post, error) {
			posts, err := forums.FindManyPosts(ctx, ids)
			if err != nil {
				return nil, err
			}
			views := make(map[string]loader.Post, len(posts))
			for id, post := range posts {
				views[id] = loader.Post{
					ID:        post.ID,
					ForumID:   post.ForumID,
					AuthorID:  post.AuthorID,
					Title:     post.Title,
					Stickied:  post.Stickied,
					Locked:    post.Locked,
					CreatedAt: post.CreatedAt,
				}
			}
			return views, nil
		},

		Files: func(ctx context.Context, ids []string) (map[string]loader.File, error) {
			objects, err := fileObjects.FindManyObjects(ctx, ids)
			if err != nil {
				return nil, err
			}
			views := make(map[string]loader.File, len(objects))
			for _, object := range objects {
				views[object.ID] = loader.File{
					ID:          object.ID,
					ComponentID: object.FilesID,
					OwnerID:     object.OwnerID,
					Name:        object.Name,
					Folder:      object.Kind == files.ObjectFolder,
					Size:        object.Size,
					Path:        object.Path,
				}
			}
			return views, nil
		},
	}
}
