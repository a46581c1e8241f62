package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/cinematch/cinematch/internal/models"
	"github.com/cinematch/cinematch/pkg/logger"
	"github.com/cinematch/cinematch/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type socialFixture struct {
	users      *memUsers
	follows    *memFollows
	logs       *memLogs
	activities *memActivities
	events     *recordingPublisher
	activity   *ActivityService
	follow     *FollowService
	like       *LikeService
}

func newSocialFixture() *socialFixture {
	users := newMemUsers()
	f := &socialFixture{
		users:      users,
		follows:    newMemFollows(users),
		logs:       newMemLogs(newMemWatchlists()),
		activities: &memActivities{},
		events:     &recordingPublisher{},
	}
	f.activity = NewActivityService(f.activities, f.follows, logger.Discard())
	f.follow = NewFollowService(f.follows, users, f.activity, f.events, logger.Discard())
	f.like = NewLikeService(newMemLikes(), f.logs, users, f.activity, f.events, logger.Discard())
	return f
}

func TestFollowRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newSocialFixture()
	ana := f.users.add("ana", true)
	bob := f.users.add("bob", true)

	require.NoError(t, f.follow.Follow(ctx, &FollowRequest{FollowerID: ana.ID, FollowedID: bob.ID}))

	following, err := f.follow.IsFollowing(ctx, ana.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, following)

	followers, err := f.follow.Followers(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, "ana", followers[0].Username)

	notifications, err := f.activity.Notifications(ctx, bob.ID, true, 1, 10)
	require.NoError(t, err)
	require.Len(t, notifications.Data, 1)
	assert.Equal(t, models.ActivityFollow, notifications.Data[0].Type)
	assert.Equal(t, ana.ID, notifications.Data[0].ActorID)

	err = f.follow.Follow(ctx, &FollowRequest{FollowerID: ana.ID, FollowedID: bob.ID})
	assertStatus(t, err, http.StatusBadRequest, "You are already following this user.")

	require.NoError(t, f.follow.Unfollow(ctx, ana.ID, bob.ID))
	following, err = f.follow.IsFollowing(ctx, ana.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, following)
	assert.Empty(t, f.activities.all())

	assert.Equal(t, []queue.EventType{queue.EventFollowCreated, queue.EventFollowDeleted}, f.events.types())
}

func TestFollowRejections(t *testing.T) {
	ctx := context.Background()
	f := newSocialFixture()
	ana := f.users.add("ana", true)

	err := f.follow.Follow(ctx, &FollowRequest{FollowerID: ana.ID, FollowedID: ana.ID})
	assertStatus(t, err, http.StatusBadRequest, "You cannot follow yourself.")

	err = f.follow.Follow(ctx, &FollowRequest{FollowerID: ana.ID, FollowedID: 999})
	assertStatus(t, err, http.StatusNotFound, "User not found")
}

func TestLikeNotifiesReviewAuthor(t *testing.T) {
	ctx := context.Background()
	f := newSocialFixture()
	ana := f.users.add("ana", true)
	bob := f.users.add("bob", true)

	review := &models.WatchLog{UserID: ana.ID, MovieID: 12}
	require.NoError(t, f.logs.CreateConsumingWatchlist(ctx, review))

	require.NoError(t, f.like.Like(ctx, &LikeRequest{UserID: bob.ID, ReviewID: review.ID}))

	liked, err := f.like.IsLiked(ctx, bob.ID, review.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	recorded := f.activities.all()
	require.Len(t, recorded, 1)
	assert.Equal(t, ana.ID, recorded[0].TargetUserID)
	assert.Equal(t, review.ID, recorded[0].LogID)

	err = f.like.Like(ctx, &LikeRequest{UserID: bob.ID, ReviewID: review.ID})
	assertStatus(t, err, http.StatusBadRequest, "")

	require.NoError(t, f.like.Unlike(ctx, bob.ID, review.ID))
	assert.Empty(t, f.activities.all())
}

func TestLikingOwnReviewIsNotANotification(t *testing.T) {
	ctx := context.Background()
	f := newSocialFixture()
	ana := f.users.add("ana", true)

	review := &models.WatchLog{UserID: ana.ID, MovieID: 12}
	require.NoError(t, f.logs.CreateConsumingWatchlist(ctx, review))
	require.NoError(t, f.like.Like(ctx, &LikeRequest{UserID: ana.ID, ReviewID: review.ID}))

	notifications, err := f.activity.Notifications(ctx, ana.ID, false, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, notifications.Data)

	err = f.like.Like(ctx, &LikeRequest{UserID: ana.ID, ReviewID: 999})
	assertStatus(t, err, http.StatusNotFound, "Review not found")
}

func TestFeedShowsFollowedActorsOnly(t *testing.T) {
	ctx := context.Background()
	f := newSocialFixture()
	ana := f.users.add("ana", true)
	bob := f.users.add("bob", true)
	cat := f.users.add("cat", true)

	empty, err := f.activity.Feed(ctx, ana.ID, 1, 10)
	require.NoError(t, err)
	assert.NotNil(t, empty.Data)
	assert.Empty(t, empty.Data)

	f.activity.Record(ctx, &models.Activity{Type: models.ActivityWatched, ActorID: bob.ID, MovieID: 11})
	f.activity.Record(ctx, &models.Activity{Type: models.ActivityWatched, ActorID: cat.ID, MovieID: 12})
	require.NoError(t, f.follow.Follow(ctx, &FollowRequest{FollowerID: ana.ID, FollowedID: bob.ID}))

	feed, err := f.activity.Feed(ctx, ana.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, feed.Data, 1)
	assert.Equal(t, bob.ID, feed.Data[0].ActorID)

	recent, err := f.activity.Recent(ctx)
	require.NoError(t, err)
	assert.Len(t, recent, 3)
}

func TestMarkRead(t *testing.T) {
	ctx := context.Background()
	f := newSocialFixture()
	ana := f.users.add("ana", true)
	bob := f.users.add("bob", true)
	require.NoError(t, f.follow.Follow(ctx, &FollowRequest{FollowerID: ana.ID, FollowedID: bob.ID}))

	notification := f.activities.all()[0]

	assertStatus(t, f.activity.MarkRead(ctx, bob.ID, "not-hex"), http.StatusBadRequest, "Invalid activity id")
	assertStatus(t, f.activity.MarkRead(ctx, ana.ID, notification.ID.Hex()), http.StatusNotFound, "Notification not found")
	require.NoError(t, f.activity.MarkRead(ctx, bob.ID, notification.ID.Hex()))

	unread, err := f.activity.Notifications(ctx, bob.ID, true, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, unread.Data)

	n, err := f.activity.MarkAllRead(ctx, bob.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}
