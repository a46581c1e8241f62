package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cinematch/cinematch/internal/models"
	"github.com/cinematch/cinematch/internal/repository"
	"github.com/cinematch/cinematch/pkg/cache"
	"github.com/cinematch/cinematch/pkg/mail"
	"github.com/cinematch/cinematch/pkg/queue"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memCache struct {
	mu     sync.Mutex
	data   map[string]string
	ttls   map[string]time.Duration
	setErr error
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (m *memCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", cache.ErrCacheMiss
	}
	return v, nil
}

func (m *memCache) GetDel(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", cache.ErrCacheMiss
	}
	delete(m.data, key)
	return v, nil
}

func (m *memCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = expiration
	return nil
}

func (m *memCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	raw, err := m.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), dest)
}

func (m *memCache) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return m.Set(ctx, key, string(raw), expiration)
}

func (m *memCache) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
		delete(m.ttls, k)
	}
	return nil
}

func (m *memCache) Exists(ctx context.Context, keys ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			n++
		}
	}
	return n, nil
}

func (m *memCache) Expire(ctx context.Context, key string, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		m.ttls[key] = expiration
	}
	return nil
}

func (m *memCache) ttl(key string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ttls[key]
}

func (m *memCache) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	fmt.Sscan(m.data[key], &n)
	n++
	m.data[key] = fmt.Sprint(n)
	return n, nil
}

// keysWithPrefix lists stored keys, used to fish out single-use tokens.
func (m *memCache) keysWithPrefix(prefix string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

type memUsers struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.User
}

func newMemUsers() *memUsers {
	return &memUsers{rows: make(map[int64]*models.User)}
}

func (m *memUsers) add(username string, active bool) *models.User {
	user := &models.User{Username: username, Email: username + "@example.com", IsActive: active}
	_ = m.Create(context.Background(), user)
	return user
}

func (m *memUsers) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	user.ID = m.nextID
	copied := *user
	m.rows[user.ID] = &copied
	return nil
}

func (m *memUsers) find(match func(*models.User) bool) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if match(u) {
			copied := *u
			return &copied
		}
	}
	return nil
}

func (m *memUsers) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.ID == id }), nil
}

func (m *memUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Username == username }), nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Email == email }), nil
}

func (m *memUsers) Taken(ctx context.Context, username, email string) (bool, error) {
	return m.find(func(u *models.User) bool { return u.Username == username || u.Email == email }) != nil, nil
}

func (m *memUsers) Activate(ctx context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if u.Username == username {
			u.IsActive = true
			return true, nil
		}
	}
	return false, nil
}

func (m *memUsers) UpdatePassword(ctx context.Context, userID int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.rows[userID]; ok {
		u.Password = hash
	}
	return nil
}

func (m *memUsers) UpdateProfile(ctx context.Context, userID int64, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[userID]
	if !ok {
		return nil
	}
	for k, v := range fields {
		switch k {
		case "full_name":
			u.FullName = v.(string)
		case "location":
			u.Location = v.(string)
		case "bio":
			u.Bio = v.(string)
		case "profile_picture":
			u.ProfilePicture = v.(string)
		case "birth_date":
			if d, ok := v.(time.Time); ok {
				u.BirthDate = &d
			} else {
				u.BirthDate = nil
			}
		}
	}
	return nil
}

func (m *memUsers) Delete(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, userID)
	return nil
}

func (m *memUsers) sorted(match func(*models.User) bool) []models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := []models.User{}
	for _, u := range m.rows {
		if match(u) {
			users = append(users, *u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

func window[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	return items[offset:min(offset+limit, len(items))]
}

func (m *memUsers) List(ctx context.Context, offset, limit int) ([]models.User, int64, error) {
	users := m.sorted(func(*models.User) bool { return true })
	return window(users, offset, limit), int64(len(users)), nil
}

func (m *memUsers) Search(ctx context.Context, query string, offset, limit int) ([]models.User, int64, error) {
	users := m.sorted(func(u *models.User) bool {
		return strings.Contains(strings.ToLower(u.Username), strings.ToLower(query))
	})
	return window(users, offset, limit), int64(len(users)), nil
}

type memFollows struct {
	mu    sync.Mutex
	users *memUsers
	pairs map[[2]int64]bool
}

func newMemFollows(users *memUsers) *memFollows {
	return &memFollows{users: users, pairs: make(map[[2]int64]bool)}
}

func (m *memFollows) Create(ctx context.Context, follow *models.Follow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]int64{follow.FollowerID, follow.FollowedID}
	if m.pairs[key] {
		return repository.ErrDuplicate
	}
	m.pairs[key] = true
	return nil
}

func (m *memFollows) Delete(ctx context.Context, followerID, followedID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pairs, [2]int64{followerID, followedID})
	return nil
}

func (m *memFollows) IsFollowing(ctx context.Context, followerID, followedID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pairs[[2]int64{followerID, followedID}], nil
}

func (m *memFollows) ids(side int, userID int64) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []int64
	for pair := range m.pairs {
		if pair[side] == userID {
			out = append(out, pair[1-side])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (m *memFollows) usersByID(ids []int64) []models.User {
	users := []models.User{}
	for _, id := range ids {
		if u, _ := m.users.GetByID(context.Background(), id); u != nil {
			users = append(users, *u)
		}
	}
	return users
}

func (m *memFollows) GetFollowers(ctx context.Context, userID int64) ([]models.User, error) {
	return m.usersByID(m.ids(1, userID)), nil
}

func (m *memFollows) GetFollowing(ctx context.Context, userID int64) ([]models.User, error) {
	return m.usersByID(m.ids(0, userID)), nil
}

func (m *memFollows) FollowedIDs(ctx context.Context, userID int64) ([]int64, error) {
	return m.ids(0, userID), nil
}

func (m *memFollows) Counts(ctx context.Context, userID int64) (int64, int64, error) {
	return int64(len(m.ids(1, userID))), int64(len(m.ids(0, userID))), nil
}

type memActivities struct {
	mu   sync.Mutex
	rows []models.Activity
}

func (m *memActivities) Insert(ctx context.Context, activity *models.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	activity.ID = primitive.NewObjectID()
	m.rows = append(m.rows, *activity)
	return nil
}

func (m *memActivities) filter(match func(models.Activity) bool) []models.Activity {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Activity{}
	for i := len(m.rows) - 1; i >= 0; i-- {
		if match(m.rows[i]) {
			out = append(out, m.rows[i])
		}
	}
	return out
}

func (m *memActivities) all() []models.Activity {
	return m.filter(func(models.Activity) bool { return true })
}

func (m *memActivities) Recent(ctx context.Context, limit int64) ([]models.Activity, error) {
	return window(m.all(), 0, int(limit)), nil
}

func (m *memActivities) Feed(ctx context.Context, actorIDs []int64, offset, limit int64) ([]models.Activity, int64, error) {
	rows := m.filter(func(a models.Activity) bool {
		for _, id := range actorIDs {
			if a.ActorID == id {
				return true
			}
		}
		return false
	})
	return window(rows, int(offset), int(limit)), int64(len(rows)), nil
}

func (m *memActivities) Notifications(ctx context.Context, userID int64, unreadOnly bool, offset, limit int64) ([]models.Activity, int64, error) {
	rows := m.filter(func(a models.Activity) bool {
		return a.TargetUserID == userID && (!unreadOnly || !a.Read)
	})
	return window(rows, int(offset), int(limit)), int64(len(rows)), nil
}

func (m *memActivities) MarkRead(ctx context.Context, id primitive.ObjectID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id && m.rows[i].TargetUserID == userID {
			m.rows[i].Read = true
			return true, nil
		}
	}
	return false, nil
}

func (m *memActivities) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.rows {
		if m.rows[i].TargetUserID == userID && !m.rows[i].Read {
			m.rows[i].Read = true
			n++
		}
	}
	return n, nil
}

func (m *memActivities) remove(match func(models.Activity) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rows[:0]
	for _, a := range m.rows {
		if !match(a) {
			kept = append(kept, a)
		}
	}
	m.rows = kept
}

func (m *memActivities) DeleteMatching(ctx context.Context, activityType models.ActivityType, actorID, targetUserID, movieID, logID int64) error {
	m.remove(func(a models.Activity) bool {
		return a.Type == activityType && a.ActorID == actorID &&
			(targetUserID == 0 || a.TargetUserID == targetUserID) &&
			(movieID == 0 || a.MovieID == movieID) &&
			(logID == 0 || a.LogID == logID)
	})
	return nil
}

func (m *memActivities) DeleteByUser(ctx context.Context, userID int64) error {
	m.remove(func(a models.Activity) bool { return a.ActorID == userID || a.TargetUserID == userID })
	return nil
}

type memMovies struct {
	rows map[int64]*models.Movie
}

func newMemMovies(movies ...models.Movie) *memMovies {
	m := &memMovies{rows: make(map[int64]*models.Movie)}
	for i := range movies {
		m.rows[movies[i].ID] = &movies[i]
	}
	return m
}

func (m *memMovies) ListRows(ctx context.Context, filter models.MovieFilter) ([]models.MovieRow, error) {
	return nil, nil
}

func (m *memMovies) GetByID(ctx context.Context, id int64) (*models.Movie, error) {
	return m.rows[id], nil
}

func (m *memMovies) Exists(ctx context.Context, id int64) (bool, error) {
	_, ok := m.rows[id]
	return ok, nil
}

func (m *memMovies) Random(ctx context.Context, count int) ([]models.MovieRow, error) {
	return nil, nil
}

func (m *memMovies) Similar(ctx context.Context, id int64, limit int) ([]models.MovieRow, error) {
	return nil, nil
}

// titleSummarizer resolves ids against memMovies without enrichment.
type titleSummarizer struct {
	movies *memMovies
}

func (s titleSummarizer) Summaries(ctx context.Context, ids []int64) ([]models.MovieSummary, error) {
	out := []models.MovieSummary{}
	for _, id := range ids {
		if m, ok := s.movies.rows[id]; ok {
			out = append(out, models.MovieSummary{ID: m.ID, Title: m.Title, Genres: []string{}})
		}
	}
	return out, nil
}

type memFavorites struct {
	mu    sync.Mutex
	users *memUsers
	rows  []models.Favorite
}

func (m *memFavorites) AddCapped(ctx context.Context, fav *models.Favorite, limit int) error {
	if u, _ := m.users.GetByID(ctx, fav.UserID); u == nil {
		return repository.ErrNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, f := range m.rows {
		if f.UserID != fav.UserID {
			continue
		}
		if f.MovieID == fav.MovieID {
			return repository.ErrDuplicate
		}
		count++
	}
	if count >= limit {
		return repository.ErrLimitReached
	}
	m.rows = append(m.rows, *fav)
	return nil
}

func (m *memFavorites) Delete(ctx context.Context, userID, movieID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rows[:0]
	for _, f := range m.rows {
		if f.UserID != userID || f.MovieID != movieID {
			kept = append(kept, f)
		}
	}
	removed := len(kept) < len(m.rows)
	m.rows = kept
	if !removed {
		return repository.ErrNotFound
	}
	return nil
}

func (m *memFavorites) MovieIDs(ctx context.Context, userID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for _, f := range m.rows {
		if f.UserID == userID {
			ids = append(ids, f.MovieID)
		}
	}
	return ids, nil
}

func (m *memFavorites) List(ctx context.Context) ([]models.Favorite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Favorite(nil), m.rows...), nil
}

type memWatchlists struct {
	mu    sync.Mutex
	pairs map[[2]int64]bool
}

func newMemWatchlists() *memWatchlists {
	return &memWatchlists{pairs: make(map[[2]int64]bool)}
}

func (m *memWatchlists) Add(ctx context.Context, entry *models.WatchlistEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]int64{entry.UserID, entry.MovieID}
	if m.pairs[key] {
		return repository.ErrDuplicate
	}
	m.pairs[key] = true
	return nil
}

func (m *memWatchlists) Delete(ctx context.Context, userID, movieID int64) error {
	if !m.remove(userID, movieID) {
		return repository.ErrNotFound
	}
	return nil
}

func (m *memWatchlists) remove(userID, movieID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]int64{userID, movieID}
	if !m.pairs[key] {
		return false
	}
	delete(m.pairs, key)
	return true
}

func (m *memWatchlists) Contains(ctx context.Context, userID, movieID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pairs[[2]int64{userID, movieID}], nil
}

func (m *memWatchlists) MovieIDs(ctx context.Context, userID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for pair := range m.pairs {
		if pair[0] == userID {
			ids = append(ids, pair[1])
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type memLogs struct {
	mu         sync.Mutex
	nextID     int64
	rows       map[int64]*models.WatchLog
	watchlists *memWatchlists
	statsCalls int
}

func newMemLogs(watchlists *memWatchlists) *memLogs {
	return &memLogs{rows: make(map[int64]*models.WatchLog), watchlists: watchlists}
}

func (m *memLogs) CreateConsumingWatchlist(ctx context.Context, log *models.WatchLog) error {
	m.mu.Lock()
	m.nextID++
	log.ID = m.nextID
	copied := *log
	m.rows[log.ID] = &copied
	m.mu.Unlock()
	m.watchlists.remove(log.UserID, log.MovieID)
	return nil
}

func (m *memLogs) GetByID(ctx context.Context, id int64) (*models.WatchLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.rows[id]; ok {
		copied := *l
		return &copied, nil
	}
	return nil, nil
}

func (m *memLogs) GetEntry(ctx context.Context, id int64) (*models.LogEntry, error) {
	log, _ := m.GetByID(ctx, id)
	if log == nil {
		return nil, nil
	}
	return &models.LogEntry{WatchLog: *log}, nil
}

func (m *memLogs) Update(ctx context.Context, id int64, update models.LogUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.rows[id]
	if !ok {
		return nil
	}
	if update.WatchedOn != nil {
		l.WatchedOn = *update.WatchedOn
	}
	if update.Rating != nil {
		l.Rating = update.Rating
	}
	if update.Review != nil {
		l.Review = update.Review
	}
	return nil
}

func (m *memLogs) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *memLogs) entries(match func(*models.WatchLog) bool) []models.LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.LogEntry{}
	for _, l := range m.rows {
		if match(l) {
			out = append(out, models.LogEntry{WatchLog: *l})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m *memLogs) List(ctx context.Context, offset, limit int) ([]models.LogEntry, int64, error) {
	rows := m.entries(func(*models.WatchLog) bool { return true })
	return window(rows, offset, limit), int64(len(rows)), nil
}

func (m *memLogs) ListByMovie(ctx context.Context, movieID int64, offset, limit int) ([]models.LogEntry, int64, error) {
	rows := m.entries(func(l *models.WatchLog) bool { return l.MovieID == movieID })
	return window(rows, offset, limit), int64(len(rows)), nil
}

func (m *memLogs) ReviewsByMovie(ctx context.Context, movieID int64) ([]models.LogEntry, error) {
	return m.entries(func(l *models.WatchLog) bool { return l.MovieID == movieID && l.Review != nil }), nil
}

func (m *memLogs) ReviewsByUser(ctx context.Context, userID int64, offset, limit int) ([]models.LogEntry, int64, error) {
	rows := m.entries(func(l *models.WatchLog) bool { return l.UserID == userID && l.Review != nil })
	return window(rows, offset, limit), int64(len(rows)), nil
}

func (m *memLogs) WatchedByUser(ctx context.Context, userID int64, offset, limit int) ([]models.WatchLog, int64, error) {
	seen := make(map[int64]bool)
	var logs []models.WatchLog
	for _, e := range m.entries(func(l *models.WatchLog) bool { return l.UserID == userID }) {
		if !seen[e.MovieID] {
			seen[e.MovieID] = true
			logs = append(logs, e.WatchLog)
		}
	}
	return window(logs, offset, limit), int64(len(logs)), nil
}

func (m *memLogs) CountDistinctMovies(ctx context.Context, userID int64) (int64, error) {
	_, total, err := m.WatchedByUser(ctx, userID, 0, 1)
	return total, err
}

func (m *memLogs) MovieStats(ctx context.Context, movieID int64) (*models.MovieLogStats, error) {
	m.mu.Lock()
	m.statsCalls++
	m.mu.Unlock()

	stats := &models.MovieLogStats{MovieID: movieID}
	var sum float64
	for _, e := range m.entries(func(l *models.WatchLog) bool { return l.MovieID == movieID }) {
		stats.Logs++
		if e.Review != nil {
			stats.Reviews++
		}
		if e.Rating != nil {
			stats.Ratings++
			sum += *e.Rating
		}
	}
	if stats.Ratings > 0 {
		avg := sum / float64(stats.Ratings)
		stats.AverageRating = &avg
	}
	return stats, nil
}

func (m *memLogs) RatedByUser(ctx context.Context, userID int64) ([]models.WatchLog, error) {
	var out []models.WatchLog
	for _, e := range m.entries(func(l *models.WatchLog) bool { return l.UserID == userID && l.Rating != nil }) {
		out = append(out, e.WatchLog)
	}
	return out, nil
}

type memLikes struct {
	mu    sync.Mutex
	pairs map[[2]int64]bool
}

func newMemLikes() *memLikes {
	return &memLikes{pairs: make(map[[2]int64]bool)}
}

func (m *memLikes) Create(ctx context.Context, like *models.ReviewLike) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]int64{like.UserID, like.ReviewID}
	if m.pairs[key] {
		return repository.ErrDuplicate
	}
	m.pairs[key] = true
	return nil
}

func (m *memLikes) Delete(ctx context.Context, userID, reviewID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pairs, [2]int64{userID, reviewID})
	return nil
}

func (m *memLikes) IsLiked(ctx context.Context, userID, reviewID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pairs[[2]int64{userID, reviewID}], nil
}

func (m *memLikes) Likers(ctx context.Context, reviewID int64) ([]models.User, error) {
	return nil, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, key string, value interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if event, ok := value.(*queue.Event); ok {
		p.events = append(p.events, *event)
	}
	return nil
}

func (p *recordingPublisher) types() []queue.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]queue.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}
