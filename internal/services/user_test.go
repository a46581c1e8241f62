package services

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/cinematch/cinematch/internal/models"
	"github.com/cinematch/cinematch/pkg/logger"
	"github.com/cinematch/cinematch/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngHeader  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	jpegHeader = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
)

type userFixture struct {
	users      *memUsers
	activities *memActivities
	events     *recordingPublisher
	dir        string
	service    *UserService
}

func newUserFixture(t *testing.T) *userFixture {
	users := newMemUsers()
	f := &userFixture{
		users:      users,
		activities: &memActivities{},
		events:     &recordingPublisher{},
		dir:        filepath.Join(t.TempDir(), "profile_pictures"),
	}
	f.service = NewUserService(users, newMemFollows(users), f.activities, f.events, f.dir, 1<<20, logger.Discard())
	return f
}

func (f *userFixture) pictures(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.dir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func strPtr(s string) *string { return &s }

func TestUpdateProfileStoresPicture(t *testing.T) {
	ctx := context.Background()
	f := newUserFixture(t)
	ana := f.users.add("ana", true)

	user, err := f.service.UpdateProfile(ctx, ana.ID, &UpdateProfileRequest{FullName: strPtr("Ana Lima"), BirthDate: strPtr("1990-05-17")}, pngHeader)
	require.NoError(t, err)
	assert.Equal(t, "Ana Lima", user.FullName)
	require.NotNil(t, user.BirthDate)
	assert.Equal(t, "1990-05-17", user.BirthDate.Format("2006-01-02"))
	assert.Equal(t, ".png", filepath.Ext(user.ProfilePicture))
	require.Len(t, f.pictures(t), 1)

	replaced, err := f.service.UpdateProfile(ctx, ana.ID, &UpdateProfileRequest{}, jpegHeader)
	require.NoError(t, err)
	assert.Equal(t, ".jpg", filepath.Ext(replaced.ProfilePicture))
	assert.Equal(t, []string{filepath.Base(replaced.ProfilePicture)}, f.pictures(t))

	cleared, err := f.service.UpdateProfile(ctx, ana.ID, &UpdateProfileRequest{BirthDate: strPtr("")}, nil)
	require.NoError(t, err)
	assert.Nil(t, cleared.BirthDate)
	assert.Equal(t, replaced.ProfilePicture, cleared.ProfilePicture)
}

func TestUpdateProfileRejectsBadPictures(t *testing.T) {
	ctx := context.Background()
	f := newUserFixture(t)
	ana := f.users.add("ana", true)

	_, err := f.service.UpdateProfile(ctx, ana.ID, &UpdateProfileRequest{}, []byte("GIF89a\x01\x00\x01\x00"))
	assertStatus(t, err, http.StatusBadRequest, "Only JPEG and PNG images are allowed")

	_, err = f.service.UpdateProfile(ctx, ana.ID, &UpdateProfileRequest{}, []byte("not an image at all"))
	assertStatus(t, err, http.StatusBadRequest, "Only JPEG and PNG images are allowed")

	large := append(append([]byte(nil), pngHeader...), bytes.Repeat([]byte{0}, 1<<20)...)
	_, err = f.service.UpdateProfile(ctx, ana.ID, &UpdateProfileRequest{}, large)
	assertStatus(t, err, http.StatusBadRequest, "File too large, max 1 MB")

	_, err = f.service.UpdateProfile(ctx, ana.ID, &UpdateProfileRequest{BirthDate: strPtr("17/05/1990")}, nil)
	assertStatus(t, err, http.StatusBadRequest, "Invalid birth date")

	_, err = f.service.UpdateProfile(ctx, 99, &UpdateProfileRequest{}, nil)
	assertStatus(t, err, http.StatusNotFound, "User not found")

	assert.Empty(t, f.pictures(t))
	user, _ := f.users.GetByID(ctx, ana.ID)
	assert.Empty(t, user.ProfilePicture)
}

func TestDeleteUserCleansUp(t *testing.T) {
	ctx := context.Background()
	f := newUserFixture(t)
	ana := f.users.add("ana", true)
	bob := f.users.add("bob", true)

	_, err := f.service.UpdateProfile(ctx, ana.ID, &UpdateProfileRequest{}, pngHeader)
	require.NoError(t, err)
	require.NoError(t, f.activities.Insert(ctx, &models.Activity{Type: models.ActivityFollow, ActorID: ana.ID, TargetUserID: bob.ID}))
	require.NoError(t, f.activities.Insert(ctx, &models.Activity{Type: models.ActivityWatched, ActorID: bob.ID, MovieID: 603}))

	require.NoError(t, f.service.Delete(ctx, ana.ID))

	_, err = f.service.Get(ctx, "ana")
	assertStatus(t, err, http.StatusNotFound, "User not found")
	assert.Empty(t, f.pictures(t))

	remaining := f.activities.all()
	require.Len(t, remaining, 1)
	assert.Equal(t, bob.ID, remaining[0].ActorID)
	assert.Equal(t, []queue.EventType{queue.EventUserDeleted}, f.events.types())

	assertStatus(t, f.service.Delete(ctx, ana.ID), http.StatusNotFound, "User not found")
}

func TestUserGetBySearchAndID(t *testing.T) {
	ctx := context.Background()
	f := newUserFixture(t)
	ana := f.users.add("ana", true)
	f.users.add("anabel", true)
	f.users.add("bob", true)

	byID, err := f.service.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, ana.Username, byID.Username)

	page, err := f.service.Search(ctx, "  ana ", 1, 1)
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, 2, page.Pagination.TotalPages)

	_, err = f.service.Search(ctx, "   ", 1, 10)
	assertStatus(t, err, http.StatusBadRequest, "Missing search query")
}
