package handlers

import (
	"net/http"

	"github.com/cinematch/cinematch/internal/middleware"
	"github.com/cinematch/cinematch/internal/services"
	"github.com/gin-gonic/gin"
)

type FollowHandler struct {
	followService *services.FollowService
}

func NewFollowHandler(followService *services.FollowService) *FollowHandler {
	return &FollowHandler{followService: followService}
}

func (h *FollowHandler) RegisterRoutes(r *gin.RouterGroup) {
	follows := r.Group("/follows")
	{
		follows.POST("", h.Follow)
		follows.GET("/:user_id/following", h.Following)
		follows.GET("/:user_id/followers", h.Followers)
		follows.GET("/:user_id/:followed_id", h.IsFollowing)
		follows.DELETE("/:user_id/:followed_id", h.Unfollow)
	}
}

func (h *FollowHandler) Follow(c *gin.Context) {
	var req services.FollowRequest
	if !bindJSON(c, &req) {
		return
	}
	if !requireSelf(c, req.FollowerID) {
		return
	}

	if err := h.followService.Follow(c.Request.Context(), &req); err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, http.StatusCreated, "User followed")
}

func (h *FollowHandler) Unfollow(c *gin.Context) {
	followerID, ok := pathUser(c, "user_id")
	if !ok {
		return
	}
	followedID, ok := paramID(c, "followed_id")
	if !ok {
		return
	}
	if err := h.followService.Unfollow(c.Request.Context(), followerID, followedID); err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, "User unfollowed")
}

func (h *FollowHandler) IsFollowing(c *gin.Context) {
	followerID, ok := paramID(c, "user_id")
	if !ok {
		return
	}
	followedID, ok := paramID(c, "followed_id")
	if !ok {
		return
	}
	following, err := h.followService.IsFollowing(c.Request.Context(), followerID, followedID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, following)
}

func (h *FollowHandler) Followers(c *gin.Context) {
	userID, ok := paramID(c, "user_id")
	if !ok {
		return
	}
	users, err := h.followService.Followers(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, users)
}

func (h *FollowHandler) Following(c *gin.Context) {
	userID, ok := paramID(c, "user_id")
	if !ok {
		return
	}
	users, err := h.followService.Following(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, users)
}

type LikeHandler struct {
	likeService *services.LikeService
}

func NewLikeHandler(likeService *services.LikeService) *LikeHandler {
	return &LikeHandler{likeService: likeService}
}

func (h *LikeHandler) RegisterRoutes(r *gin.RouterGroup) {
	likes := r.Group("/likes")
	{
		likes.POST("", h.Like)
		likes.GET("/:id", h.Likers)
		likes.GET("/:id/:review_id", h.IsLiked)
		likes.DELETE("/:id/:review_id", h.Unlike)
	}
}

func (h *LikeHandler) Like(c *gin.Context) {
	var req services.LikeRequest
	if !bindJSON(c, &req) {
		return
	}
	if !requireSelf(c, req.UserID) {
		return
	}

	if err := h.likeService.Like(c.Request.Context(), &req); err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, http.StatusCreated, "Review liked")
}

// Likers lists the users who liked review :id.
func (h *LikeHandler) Likers(c *gin.Context) {
	reviewID, ok := paramID(c, "id")
	if !ok {
		return
	}
	users, err := h.likeService.Likers(c.Request.Context(), reviewID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, users)
}

// IsLiked reports whether user :id liked :review_id.
func (h *LikeHandler) IsLiked(c *gin.Context) {
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}
	reviewID, ok := paramID(c, "review_id")
	if !ok {
		return
	}
	liked, err := h.likeService.IsLiked(c.Request.Context(), userID, reviewID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, liked)
}

func (h *LikeHandler) Unlike(c *gin.Context) {
	userID, ok := pathUser(c, "id")
	if !ok {
		return
	}
	reviewID, ok := paramID(c, "review_id")
	if !ok {
		return
	}
	if err := h.likeService.Unlike(c.Request.Context(), userID, reviewID); err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, "Review unliked")
}

type ActivityHandler struct {
	activityService *services.ActivityService
}

func NewActivityHandler(activityService *services.ActivityService) *ActivityHandler {
	return &ActivityHandler{activityService: activityService}
}

func (h *ActivityHandler) RegisterRoutes(r *gin.RouterGroup) {
	activities := r.Group("/activities")
	{
		activities.GET("/recent", h.Recent)
		activities.GET("/feed", h.Feed)
		activities.GET("/notifications", h.Notifications)
		activities.PATCH("/read-all", h.MarkAllRead)
		activities.PATCH("/:id/read", h.MarkRead)
	}
}

func (h *ActivityHandler) Recent(c *gin.Context) {
	activities, err := h.activityService.Recent(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, activities)
}

func (h *ActivityHandler) Feed(c *gin.Context) {
	page, limit, ok := pageParams(c)
	if !ok {
		return
	}
	result, err := h.activityService.Feed(c.Request.Context(), middleware.GetUserID(c), page, limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ActivityHandler) Notifications(c *gin.Context) {
	page, limit, ok := pageParams(c)
	if !ok {
		return
	}
	unreadOnly := c.Query("unread") == "true"
	result, err := h.activityService.Notifications(c.Request.Context(), middleware.GetUserID(c), unreadOnly, page, limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ActivityHandler) MarkRead(c *gin.Context) {
	if err := h.activityService.MarkRead(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, "Notification marked as read")
}

func (h *ActivityHandler) MarkAllRead(c *gin.Context) {
	n, err := h.activityService.MarkAllRead(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, gin.H{"updated": n})
}
