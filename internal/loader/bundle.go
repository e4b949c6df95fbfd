// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package loader

import (
	"context"
	"net/http"
	"time"
)

// # Graph Views

// The view structs below are the projections exposed to response assembly.
// They are deliberately narrower than the domain entities: whatever is not
// present here cannot leak into an API response by accident.

// User is the public-safe projection of an account. Credential material,
// session ids, two-factor secrets, and quota internals are stripped at the
// batch-fetch boundary, because the same loader renders other people's
// profiles inside a response tree.
type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Admin       bool      `json:"admin"`
	Banned      bool      `json:"banned"`
	CreatedAt   time.Time `json:"created_at"`
}

// Planet is the summary projection of a tenant community.
type Planet struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	Private   bool      `json:"private"`
	Featured  bool      `json:"featured"`
	Verified  bool      `json:"verified"`
	Partnered bool      `json:"partnered"`
	CreatedAt time.Time `json:"created_at"`
}

// Component is the polymorphic component reference carried by a planet.
type Component struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Name     string `json:"name"`
	PlanetID string `json:"planet_id"`
}

// Channel is the projection of a chat channel.
type Channel struct {
	ID       string   `json:"id"`
	Kind     string   `json:"kind"`
	Name     string   `json:"name"`
	ChatID   string   `json:"chat_id,omitempty"`
	PlanetID string   `json:"planet_id,omitempty"`
	UserIDs  []string `json:"user_ids,omitempty"`
}

// Message is the projection of a chat message.
type Message struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	Edited    bool      `json:"edited"`
	CreatedAt time.Time `json:"created_at"`
}

// Post is the projection of a forum post.
type Post struct {
	ID        string    `json:"id"`
	ForumID   string    `json:"forum_id"`
	AuthorID  string    `json:"author_id"`
	Title     string    `json:"title"`
	Stickied  bool      `json:"stickied"`
	Locked    bool      `json:"locked"`
	CreatedAt time.Time `json:"created_at"`
}

// File is the projection of a file object (file or folder).
type File struct {
	ID          string   `json:"id"`
	ComponentID string   `json:"component_id"`
	OwnerID     string   `json:"owner_id"`
	Name        string   `json:"name"`
	Folder      bool     `json:"folder"`
	Size        int64    `json:"size"`
	Path        []string `json:"path"`
}

// # Per-Request Bundle

// SourceSet supplies the batch fetch function for every entity category.
// The composition root builds these from the domain repositories' ANY($1)
// lookups; domain packages never see this package's internals.
type SourceSet struct {
	Users      BatchFunc[User]
	Planets    BatchFunc[Planet]
	Components BatchFunc[Component]
	Channels   BatchFunc[Channel]
	Messages   BatchFunc[Message]
	Posts      BatchFunc[Post]
	Files      BatchFunc[File]
}

// Bundle is the per-request set of loaders, one per entity category.
//
// Handlers obtain the bundle via ctxutil; every relational field in a
// response must resolve through it rather than a direct store call. That is
// a binding contract, not an optimization.
type Bundle struct {
	Users      *Loader[User]
	Planets    *Loader[Planet]
	Components *Loader[Component]
	Channels   *Loader[Channel]
	Messages   *Loader[Message]
	Posts      *Loader[Post]
	Files      *Loader[File]
}

// NewBundle constructs a fresh [Bundle] over the given sources.
func NewBundle(sources SourceSet) *Bundle {
	return &Bundle{
		Users:      New(sources.Users),
		Planets:    New(sources.Planets),
		Components: New(sources.Components),
		Channels:   New(sources.Channels),
		Messages:   New(sources.Messages),
		Posts:      New(sources.Posts),
		Files:      New(sources.Files),
	}
}

// # HTTP Integration

// bundleKey is the context key type for the per-request bundle.
type bundleKey struct{}

// WithBundle returns a request whose context carries the given bundle.
func WithBundle(request *http.Request, bundle *Bundle) *http.Request {
	ctx := context.WithValue(request.Context(), bundleKey{}, bundle)
	return request.WithContext(ctx)
}

// FromContext retrieves the request-scoped bundle, or nil outside the
// middleware.
func FromContext(ctx context.Context) *Bundle {
	bundle, _ := ctx.Value(bundleKey{}).(*Bundle)
	return bundle
}

// FromRequest retrieves the request's bundle, or nil outside the middleware.
func FromRequest(request *http.Request) *Bundle {
	return FromContext(request.Context())
}

// Middleware constructs a fresh [Bundle] for every incoming request.
//
// It must be mounted once, after authentication, so that every downstream
// handler shares one batching cache per request.
func Middleware(sources SourceSet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			next.ServeHTTP(writer, WithBundle(request, NewBundle(sources)))
		})
	}
}
