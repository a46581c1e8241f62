package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cinematch/cinematch/internal/models"
	"github.com/cinematch/cinematch/pkg/apperror"
	"github.com/cinematch/cinematch/pkg/logger"
	"github.com/cinematch/cinematch/pkg/queue"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var pictureExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

type UserService struct {
	users      UserStore
	follows    FollowStore
	activities ActivityStore
	events     EventPublisher
	uploadDir  string
	maxUpload  int64
	logger     *logger.Logger
}

func NewUserService(users UserStore, follows FollowStore, activities ActivityStore, events EventPublisher, uploadDir string, maxUpload int64, logger *logger.Logger) *UserService {
	return &UserService{
		users:      users,
		follows:    follows,
		activities: activities,
		events:     events,
		uploadDir:  uploadDir,
		maxUpload:  maxUpload,
		logger:     logger,
	}
}

// UpdateProfileRequest is bound from a multipart form. Nil fields are left
// unchanged.
type UpdateProfileRequest struct {
	FullName  *string `form:"full_name" binding:"omitempty,max=100"`
	BirthDate *string `form:"birth_date"`
	Location  *string `form:"location" binding:"omitempty,max=100"`
	Bio       *string `form:"bio" binding:"omitempty,max=500"`
}

func (s *UserService) List(ctx context.Context, page, limit int) (*models.Page[models.User], error) {
	if err := validatePage(page, limit); err != nil {
		return nil, err
	}
	users, total, err := s.users.List(ctx, models.Offset(page, limit), limit)
	if err != nil {
		return nil, err
	}
	return &models.Page[models.User]{Data: users, Pagination: models.NewPagination(page, limit, total)}, nil
}

func (s *UserService) Search(ctx context.Context, query string, page, limit int) (*models.Page[models.User], error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperror.BadRequest("Missing search query")
	}
	if err := validatePage(page, limit); err != nil {
		return nil, err
	}
	users, total, err := s.users.Search(ctx, query, models.Offset(page, limit), limit)
	if err != nil {
		return nil, err
	}
	return &models.Page[models.User]{Data: users, Pagination: models.NewPagination(page, limit, total)}, nil
}

// Get resolves a numeric id or, failing that, a username.
func (s *UserService) Get(ctx context.Context, idOrUsername string) (*models.UserProfile, error) {
	var (
		user *models.User
		err  error
	)
	if id, parseErr := strconv.ParseInt(idOrUsername, 10, 64); parseErr == nil {
		user, err = s.users.GetByID(ctx, id)
	} else {
		user, err = s.users.GetByUsername(ctx, idOrUsername)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, apperror.NotFound("User not found")
	}

	followers, following, err := s.follows.Counts(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count follows: %w", err)
	}
	return &models.UserProfile{User: *user, FollowersCount: followers, FollowingCount: following}, nil
}

// UpdateProfile applies form fields and, when picture is non-empty, stores
// it as the new profile picture.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req *UpdateProfileRequest, picture []byte) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, apperror.NotFound("User not found")
	}

	fields := make(map[string]interface{})
	if req.FullName != nil {
		fields["full_name"] = *req.FullName
	}
	if req.Location != nil {
		fields["location"] = *req.Location
	}
	if req.Bio != nil {
		fields["bio"] = *req.Bio
	}
	if req.BirthDate != nil {
		if *req.BirthDate == "" {
			fields["birth_date"] = nil
		} else {
			date, err := time.Parse("2006-01-02", *req.BirthDate)
			if err != nil {
				return nil, apperror.BadRequest("Invalid birth date")
			}
			fields["birth_date"] = date
		}
	}

	var oldPicture string
	if len(picture) > 0 {
		path, err := s.savePicture(picture)
		if err != nil {
			return nil, err
		}
		oldPicture = user.ProfilePicture
		fields["profile_picture"] = path
	}

	if err := s.users.UpdateProfile(ctx, userID, fields); err != nil {
		return nil, err
	}
	if oldPicture != "" {
		s.removePicture(oldPicture)
	}

	return s.users.GetByID(ctx, userID)
}

func (s *UserService) savePicture(data []byte) (string, error) {
	if int64(len(data)) > s.maxUpload {
		return "", apperror.BadRequest(fmt.Sprintf("File too large, max %d MB", s.maxUpload>>20))
	}

	ext, ok := pictureExtensions[mimetype.Detect(data).String()]
	if !ok {
		return "", apperror.BadRequest("Only JPEG and PNG images are allowed")
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}
	path := filepath.Join(s.uploadDir, uuid.NewString()+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save picture: %w", err)
	}
	return filepath.ToSlash(path), nil
}

func (s *UserService) removePicture(path string) {
	if filepath.Dir(filepath.FromSlash(path)) != filepath.Clean(s.uploadDir) {
		return
	}
	if err := os.Remove(filepath.FromSlash(path)); err != nil && !os.IsNotExist(err) {
		s.logger.WithError(err).WithField("path", path).Warn("Failed to remove old profile picture")
	}
}

// Delete removes the account. Relational rows cascade; the user's
// activities are removed from the document store afterwards.
func (s *UserService) Delete(ctx context.Context, userID int64) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return apperror.NotFound("User not found")
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	if err := s.activities.DeleteByUser(ctx, userID); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("Failed to delete user activities")
	}
	if user.ProfilePicture != "" {
		s.removePicture(user.ProfilePicture)
	}

	publishEvent(ctx, s.events, s.logger, queue.EventUserDeleted, userID, queue.UserEventData{
		UserID:   userID,
		Username: user.Username,
	})

	s.logger.WithField("user_id", userID).Info("User deleted")
	return nil
}
