// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package files_test

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starbasehq/starbase/internal/component"
	"github.com/starbasehq/starbase/internal/component/files"
	"github.com/starbasehq/starbase/internal/perm"
	"github.com/starbasehq/starbase/internal/platform/apperr"
	"github.com/starbasehq/starbase/internal/platform/constants"
)

// # Test Doubles

type fakeFileRepo struct {
	roots   map[string]*files.Files
	objects map[string]*files.FileObject
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{
		roots:   make(map[string]*files.Files),
		objects: make(map[string]*files.FileObject),
	}
}

func (repo *fakeFileRepo) CreateFiles(_ context.Context, f *files.Files) error {
	repo.roots[f.ID] = f
	return nil
}

func (repo *fakeFileRepo) FindFilesByID(_ context.Context, id string) (*files.Files, error) {
	f, ok := repo.roots[id]
	if !ok {
		return nil, apperr.NotFound("Files")
	}
	return f, nil
}

func (repo *fakeFileRepo) DeleteFiles(_ context.Context, id string) error {
	delete(repo.roots, id)
	return nil
}

func (repo *fakeFileRepo) CreateObject(_ context.Context, object *files.FileObject) error {
	if object.Path == nil {
		object.Path = []string{}
	}
	repo.objects[object.ID] = object
	return nil
}

func (repo *fakeFileRepo) FindObjectByID(_ context.Context, id string) (*files.FileObject, error) {
	object, ok := repo.objects[id]
	if !ok {
		return nil, apperr.NotFound("File")
	}
	return object, nil
}

func (repo *fakeFileRepo) FindManyObjects(_ context.Context, ids []string) ([]*files.FileObject, error) {
	var found []*files.FileObject
	for _, id := range ids {
		if object, ok := repo.objects[id]; ok {
			found = append(found, object)
		}
	}
	return found, nil
}

func (repo *fakeFileRepo) ListChildren(_ context.Context, filesID string, path []string) ([]*files.FileObject, error) {
	var children []*files.FileObject
	for _, object := range repo.objects {
		if object.FilesID == filesID && pathsEqual(object.Path, path) {
			children = append(children, object)
		}
	}
	sort.Slice(children, func(i, j int) bool {
		if (children[i].Kind == files.ObjectFolder) != (children[j].Kind == files.ObjectFolder) {
			return children[i].Kind == files.ObjectFolder
		}
		return children[i].Name < children[j].Name
	})
	return children, nil
}

func (repo *fakeFileRepo) RenameObject(_ context.Context, id, name string) error {
	object, ok := repo.objects[id]
	if !ok {
		return apperr.NotFound("File")
	}
	object.Name = name
	return nil
}

func (repo *fakeFileRepo) MarkUploaded(_ context.Context, id string, size int64) error {
	object, ok := repo.objects[id]
	if !ok {
		return apperr.NotFound("File")
	}
	if object.Kind != files.ObjectFile || object.State != files.StatePending {
		return apperr.Conflict("Upload already confirmed")
	}
	object.State = files.StateUploaded
	object.Size = size
	return nil
}

func (repo *fakeFileRepo) DeleteObject(_ context.Context, id string) (*files.FileObject, error) {
	object, ok := repo.objects[id]
	if !ok {
		return nil, apperr.NotFound("File")
	}
	delete(repo.objects, id)
	return object, nil
}

func (repo *fakeFileRepo) DeleteSubtree(_ context.Context, filesID string, folder *files.FileObject) ([]*files.FileObject, error) {
	removed := []*files.FileObject{folder}
	delete(repo.objects, folder.ID)
	for id, object := range repo.objects {
		if object.FilesID == filesID && object.InSubtreeOf(folder.ID) {
			removed = append(removed, object)
			delete(repo.objects, id)
		}
	}
	return removed, nil
}

func (repo *fakeFileRepo) DeleteAll(_ context.Context, filesID string) ([]*files.FileObject, error) {
	var removed []*files.FileObject
	for id, object := range repo.objects {
		if object.FilesID == filesID {
			removed = append(removed, object)
			delete(repo.objects, id)
		}
	}
	return removed, nil
}

func (repo *fakeFileRepo) MoveObject(_ context.Context, object *files.FileObject, newPath []string) error {
	stored, ok := repo.objects[object.ID]
	if !ok {
		return apperr.NotFound("File")
	}
	oldPrefix := stored.ChildPath()
	if newPath == nil {
		newPath = []string{}
	}
	stored.Path = append([]string{}, newPath...)

	if stored.Kind != files.ObjectFolder {
		return nil
	}
	newPrefix := append(append([]string{}, newPath...), stored.ID)
	for _, descendant := range repo.objects {
		if descendant.FilesID != stored.FilesID || len(descendant.Path) < len(oldPrefix) {
			continue
		}
		if !pathsEqual(descendant.Path[:len(oldPrefix)], oldPrefix) {
			continue
		}
		rewritten := append(append([]string{}, newPrefix...), descendant.Path[len(oldPrefix):]...)
		descendant.Path = rewritten
	}
	return nil
}

func pathsEqual(a, b []string) bool {
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

// fakeTicketRepo stores tickets in memory with single-use consumption.
type fakeTicketRepo struct {
	tickets map[string]*files.TicketBundle
}

func (repo *fakeTicketRepo) Create(_ context.Context, ticketID string, bundle *files.TicketBundle, _ time.Duration) error {
	repo.tickets[ticketID] = bundle
	return nil
}

func (repo *fakeTicketRepo) Consume(_ context.Context, ticketID string) (*files.TicketBundle, error) {
	bundle, ok := repo.tickets[ticketID]
	if !ok {
		return nil, apperr.NotFound("Ticket")
	}
	delete(repo.tickets, ticketID)
	return bundle, nil
}

// fakeQuota tracks byte counters per user.
type fakeQuota struct {
	used   map[string]int64
	waived map[string]bool
}

func (quota *fakeQuota) Usage(_ context.Context, userID string) (int64, bool, error) {
	return quota.used[userID], quota.waived[userID], nil
}

func (quota *fakeQuota) AddUsedBytes(_ context.Context, userID string, delta int64) error {
	quota.used[userID] += delta
	return nil
}

// fakeObjectStore keeps object content in memory.
type fakeObjectStore struct {
	content map[string][]byte
}

func (store *fakeObjectStore) IssueUploadURL(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	return "https://objects.test/upload/" + key, nil
}

func (store *fakeObjectStore) IssueDownloadURL(_ context.Context, key string, _ time.Duration, _ string) (string, error) {
	return "https://objects.test/download/" + key, nil
}

func (store *fakeObjectStore) HeadObject(_ context.Context, key string) (int64, error) {
	content, ok := store.content[key]
	if !ok {
		return 0, apperr.NotFound("Object")
	}
	return int64(len(content)), nil
}

func (store *fakeObjectStore) GetObject(_ context.Context, key string) (io.ReadCloser, error) {
	content, ok := store.content[key]
	if !ok {
		return nil, apperr.NotFound("Object")
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (store *fakeObjectStore) DeleteObject(_ context.Context, key string) error {
	delete(store.content, key)
	return nil
}

func (store *fakeObjectStore) CopyObject(_ context.Context, srcKey, destKey string) error {
	content, ok := store.content[srcKey]
	if !ok {
		return apperr.NotFound("Object")
	}
	store.content[destKey] = append([]byte{}, content...)
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

type filesFixture struct {
	service *files.Service
	repo    *fakeFileRepo
	tickets *fakeTicketRepo
	quota   *fakeQuota
	store   *fakeObjectStore
	filesID string
}

// newFixture builds a files component on public planet "p1" (owner "owner",
// member "member", planet-banned "banned") plus a private planet "p2" with a
// second component reachable through secretComponent.
func newFixture(t *testing.T) *filesFixture {
	t.Helper()

	directory := &testDirectory{subjects: map[string]*testSubject{
		"owner":    {id: "owner"},
		"member":   {id: "member"},
		"stranger": {id: "stranger"},
		"banned":   {id: "banned"},
	}}
	realms := &testRealmSource{realms: map[string]*testRealm{
		"p1": {id: "p1", owner: "owner", members: []string{"member"}, banned: []string{"banned"}},
		"p2": {id: "p2", owner: "owner", private: true, members: []string{"member"}},
	}}

	repo := newFakeFileRepo()
	tickets := &fakeTicketRepo{tickets: make(map[string]*files.TicketBundle)}
	quota := &fakeQuota{used: make(map[string]int64), waived: make(map[string]bool)}
	store := &fakeObjectStore{content: make(map[string][]byte)}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	service := files.NewService(repo, tickets, quota, store, perm.NewEngine(directory, realms), logger)

	filesID, err := service.Create(context.Background(), "p1", "owner", "Shared Files")
	require.NoError(t, err)

	return &filesFixture{
		service: service,
		repo:    repo,
		tickets: tickets,
		quota:   quota,
		store:   store,
		filesID: filesID,
	}
}

// upload pushes a confirmed file with the given content into folderID.
func (fixture *filesFixture) upload(t *testing.T, userID, folderID, name, content string) *files.FileObject {
	t.Helper()
	ctx := context.Background()

	object, _, err := fixture.service.BeginUpload(ctx, userID, fixture.filesID, folderID, name, "text/plain")
	require.NoError(t, err)

	fixture.store.content[object.StorageKey] = []byte(content)

	confirmed, err := fixture.service.ConfirmUpload(ctx, userID, object.ID)
	require.NoError(t, err)
	return confirmed
}

func (fixture *filesFixture) folder(t *testing.T, userID, parentID, name string) *files.FileObject {
	t.Helper()
	folder, err := fixture.service.CreateFolder(context.Background(), userID, fixture.filesID, parentID, name)
	require.NoError(t, err)
	return folder
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
	assert.Equal(t, component.KindFiles, fixture.service.Kind())
}

func TestUploadLifecycle(t *testing.T) {
	fixture := newFixture(t)
	ctx := context.Background()

	object, uploadURL, err := fixture.service.BeginUpload(ctx, "member", fixture.filesID, "", "notes.txt", "text/plain")
	require.NoError(t, err)
	assert.Equal(t, files.StatePending, object.State)
	assert.Contains(t, uploadURL, object.ID)
	assert.Zero(t, fixture.quota.used["member"])

	t.Run("confirm_before_upload_fails", func(t *testing.T) {
		_, err := fixture.service.ConfirmUpload(ctx, "member", object.ID)
		requireCode(t, err, "UNPROCESSABLE")
	})

	fixture.store.content[object.StorageKey] = []byte("hello, starbase")

	confirmed, err := fixture.service.ConfirmUpload(ctx, "member", object.ID)
	require.NoError(t, err)
	assert.Equal(t, files.StateUploaded, confirmed.State)
	assert.Equal(t, int64(15), confirmed.Size)
	assert.Equal(t, int64(15), fixture.quota.used["member"])

	t.Run("double_confirm_counts_quota_once", func(t *testing.T) {
		_, err := fixture.service.ConfirmUpload(ctx, "member", object.ID)
		requireCode(t, err, "CONFLICT")
		assert.Equal(t, int64(15), fixture.quota.used["member"])
	})
}

func TestCancelUpload(t *testing.T) {
	fixture := newFixture(t)
	ctx := context.Background()

	pending, _, err := fixture.service.BeginUpload(ctx, "member", fixture.filesID, "", "draft.txt", "text/plain")
	require.NoError(t, err)

	t.Run("only_the_uploader_may_cancel", func(t *testing.T) {
		err := fixture.service.CancelUpload(ctx, "owner", pending.ID)
		requireCode(t, err, "NOT_FOUND")
	})

	t.Run("cancel_discards_without_quota_effect", func(t *testing.T) {
		require.NoError(t, fixture.service.CancelUpload(ctx, "member", pending.ID))
		_, err := fixture.service.GetObject(ctx, "member", pending.ID)
		requireCode(t, err, "NOT_FOUND")
		assert.Zero(t, fixture.quota.used["member"])
	})

	t.Run("uploaded_files_cannot_be_cancelled", func(t *testing.T) {
		confirmed := fixture.upload(t, "member", "", "keep.txt", "data")
		err := fixture.service.CancelUpload(ctx, "member", confirmed.ID)
		requireCode(t, err, "CONFLICT")
	})
}

func TestQuotaIdempotence(t *testing.T) {
	fixture := newFixture(t)
	ctx := context.Background()

	confirmed := fixture.upload(t, "member", "", "big.bin", "0123456789")
	require.Equal(t, int64(10), fixture.quota.used["member"])

	require.NoError(t, fixture.service.DeleteNode(ctx, "member", confirmed.ID))
	assert.Equal(t, int64(0), fixture.quota.used["member"])

	// Deleting again is NOT_FOUND, never a second decrement.
	err := fixture.service.DeleteNode(ctx, "member", confirmed.ID)
	requireCode(t, err, "NOT_FOUND")
	assert.Equal(t, int64(0), fixture.quota.used["member"])
}

func TestQuotaCap(t *testing.T) {
	fixture := newFixture(t)
	ctx := context.Background()

	fixture.quota.used["member"] = constants.DefaultFileQuotaBytes

	t.Run("cap_blocks_new_uploads", func(t *testing.T) {
		_, _, err := fixture.service.BeginUpload(ctx, "member", fixture.filesID, "", "over.txt", "text/plain")
		requireCode(t, err, "FORBIDDEN")
	})

	t.Run("waiver_lifts_the_cap", func(t *testing.T) {
		fixture.quota.waived["member"] = true
		_, _, err := fixture.service.BeginUpload(ctx, "member", fixture.filesID, "", "over.txt", "text/plain")
		require.NoError(t, err)
	})
}

func TestFolderMove(t *testing.T) {
	fixture := newFixture(t)
	ctx := context.Background()

	// root/archive/reports with a file inside reports.
	archive := fixture.folder(t, "member", "", "archive")
	reports := fixture.folder(t, "member", archive.ID, "reports")
	file := fixture.upload(t, "member", reports.ID, "q1.txt", "numbers")
	require.Equal(t, []string{archive.ID, reports.ID}, file.Path)

	// New destination at the root.
	vault := fixture.folder(t, "member", "", "vault")

	require.NoError(t, fixture.service.Move(ctx, "member", fixture.filesID, []string{reports.ID}, vault.ID))

	moved, err := fixture.service.GetObject(ctx, "member", file.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{vault.ID, reports.ID}, moved.Path)
	assert.False(t, moved.InSubtreeOf(archive.ID))

	t.Run("folder_cannot_move_into_itself", func(t *testing.T) {
		inner := fixture.folder(t, "member", reports.ID, "inner")
		err := fixture.service.Move(ctx, "member", fixture.filesID, []string{reports.ID}, inner.ID)
		requireCode(t, err, "VALIDATION_ERROR")
	})

	t.Run("nested_targets_are_refused", func(t *testing.T) {
		err := fixture.service.Move(ctx, "member", fixture.filesID, []string{vault.ID, reports.ID}, "")
		requireCode(t, err, "VALIDATION_ERROR")
	})

	t.Run("move_to_root", func(t *testing.T) {
		require.NoError(t, fixture.service.Move(ctx, "member", fixture.filesID, []string{reports.ID}, ""))
		moved, err := fixture.service.GetObject(ctx, "member", file.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{reports.ID}, moved.Path)
	})
}

func TestSubtreeDeletion(t *testing.T) {
	fixture := newFixture(t)
	ctx := context.Background()

	folder := fixture.folder(t, "member", "", "bundle")
	first := fixture.upload(t, "member", folder.ID, "a.txt", "aaaa")
	second := fixture.upload(t, "owner", folder.ID, "b.txt", "bb")
	require.Equal(t, int64(4), fixture.quota.used["member"])
	require.Equal(t, int64(2), fixture.quota.used["owner"])

	require.NoError(t, fixture.service.DeleteNode(ctx, "member", folder.ID))

	assert.Zero(t, fixture.quota.used["member"])
	assert.Zero(t, fixture.quota.used["owner"])
	assert.NotContains(t, fixture.store.content, first.StorageKey)
	assert.NotContains(t, fixture.store.content, second.StorageKey)
}

func TestBatchDeleteValidation(t *testing.T) {
	fixture := newFixture(t)
	ctx := context.Background()

	kept := fixture.upload(t, "member", "", "kept.txt", "data")

	// One unknown target fails the whole batch before any deletion.
	err := fixture.service.DeleteMany(ctx, "member", fixture.filesID, []string{kept.ID, "ghost"})
	requireCode(t, err, "NOT_FOUND")

	_, err = fixture.service.GetObject(ctx, "member", kept.ID)
	require.NoError(t, err)

	t.Run("strangers_cannot_batch_delete_others_files", func(t *testing.T) {
		err := fixture.service.DeleteMany(ctx, "stranger", fixture.filesID, []string{kept.ID})
		requireCode(t, err, "FORBIDDEN")
	})
}

func TestCopy(t *testing.T) {
	fixture := newFixture(t)
	ctx := context.Background()

	source := fixture.upload(t, "member", "", "origin.txt", "copy me")
	dest := fixture.folder(t, "member", "", "copies")

	duplicate, err := fixture.service.Copy(ctx, "owner", source.ID, dest.ID)
	require.NoError(t, err)

	assert.Equal(t, "owner", duplicate.OwnerID)
	assert.Equal(t, source.Size, duplicate.Size)
	assert.Equal(t, []string{dest.ID}, duplicate.Path)
	assert.NotEqual(t, source.StorageKey, duplicate.StorageKey)
	assert.Equal(t, []byte("copy me"), fixture.store.content[duplicate.StorageKey])
	assert.Equal(t, source.Size, fixture.quota.used["owner"])

	t.Run("folders_cannot_be_copied", func(t *testing.T) {
		_, err := fixture.service.Copy(ctx, "member", dest.ID, "")
		requireCode(t, err, "VALIDATION_ERROR")
	})
}

func TestDownloads(t *testing.T) {
	fixture := newFixture(t)
	ctx := context.Background()

	confirmed := fixture.upload(t, "member", "", "share.txt", "content")

	t.Run("anonymous_downloads_public_files", func(t *testing.T) {
		url, err := fixture.service.IssueDownload(ctx, "", confirmed.ID)
		require.NoError(t, err)
		assert.Contains(t, url, confirmed.ID)
	})

	t.Run("pending_files_are_not_downloadable", func(t *testing.T) {
		pending, _, err := fixture.service.BeginUpload(ctx, "member", fixture.filesID, "", "wip.txt", "text/plain")
		require.NoError(t, err)

		_, err = fixture.service.IssueDownload(ctx, "member", pending.ID)
		requireCode(t, err, "NOT_FOUND")
	})
}

func TestDownloadTickets(t *testing.T) {
	fixture := newFixture(t)
	ctx := context.Background()

	first := fixture.upload(t, "member", "", "one.txt", "first file")
	second := fixture.upload(t, "owner", "", "two.txt", "second file")

	ticketID, err := fixture.service.CreateDownloadTicket(ctx, "stranger", []string{first.ID, second.ID})
	require.NoError(t, err)

	bundle, err := fixture.service.ResolveTicket(ctx, ticketID)
	require.NoError(t, err)
	require.Len(t, bundle.Entries, 2)

	t.Run("tickets_are_single_use", func(t *testing.T) {
		_, err := fixture.service.ResolveTicket(ctx, ticketID)
		requireCode(t, err, "NOT_FOUND")
	})

	t.Run("zip_carries_every_entry", func(t *testing.T) {
		var buffer bytes.Buffer
		require.NoError(t, fixture.service.WriteZip(ctx, &buffer, bundle))

		archive, err := zip.NewReader(bytes.NewReader(buffer.Bytes()), int64(buffer.Len()))
		require.NoError(t, err)
		require.Len(t, archive.File, 2)

		names := []string{archive.File[0].Name, archive.File[1].Name}
		assert.ElementsMatch(t, []string{"one.txt", "two.txt"}, names)
	})

	t.Run("duplicate_names_are_disambiguated", func(t *testing.T) {
		clash := &files.TicketBundle{Entries: []files.TicketEntry{
			{StorageKey: first.StorageKey, Name: "same.txt"},
			{StorageKey: second.StorageKey, Name: "same.txt"},
		}}

		var buffer bytes.Buffer
		require.NoError(t, fixture.service.WriteZip(ctx, &buffer, clash))

		archive, err := zip.NewReader(bytes.NewReader(buffer.Bytes()), int64(buffer.Len()))
		require.NoError(t, err)
		require.Len(t, archive.File, 2)
		assert.ElementsMatch(t, []string{"same.txt", "same (1).txt"},
			[]string{archive.File[0].Name, archive.File[1].Name})
	})

	t.Run("pending_files_cannot_be_ticketed", func(t *testing.T) {
		pending, _, err := fixture.service.BeginUpload(ctx, "member", fixture.filesID, "", "wip.txt", "text/plain")
		require.NoError(t, err)

		_, err = fixture.service.CreateDownloadTicket(ctx, "member", []string{pending.ID})
		requireCode(t, err, "VALIDATION_ERROR")
	})
}

func TestComponentCascade(t *testing.T) {
	fixture := newFixture(t)
	ctx := context.Background()

	folder := fixture.folder(t, "member", "", "stuff")
	file := fixture.upload(t, "member", folder.ID, "data.txt", "payload")
	require.Equal(t, int64(7), fixture.quota.used["member"])

	require.NoError(t, fixture.service.Delete(ctx, fixture.filesID))

	assert.Empty(t, fixture.repo.objects)
	assert.NotContains(t, fixture.store.content, file.StorageKey)
	assert.Zero(t, fixture.quota.used["member"])

	_, err := fixture.service.GetFiles(ctx, "member", fixture.filesID)
	requireCode(t, err, "NOT_FOUND")
}
