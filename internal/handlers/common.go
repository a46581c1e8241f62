package handlers

import (
	"net/http"
	"strconv"

	"github.com/cinematch/cinematch/internal/middleware"
	"github.com/cinematch/cinematch/internal/models"
	"github.com/cinematch/cinematch/pkg/apperror"
	"github.com/gin-gonic/gin"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		_ = c.Error(middleware.BindingError(err))
		return false
	}
	return true
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		_ = c.Error(apperror.BadRequest("Invalid " + name))
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, fallback int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		_ = c.Error(apperror.BadRequest("Invalid " + name))
		return 0, false
	}
	return n, true
}

// pageParams reads page and limit. Range checks happen in the services;
// limit is capped and pages past the int offset range are rejected here.
func pageParams(c *gin.Context) (int, int, bool) {
	page, ok := queryInt(c, "page", defaultPage)
	if !ok {
		return 0, 0, false
	}
	limit, ok := queryInt(c, "limit", defaultLimit)
	if !ok {
		return 0, 0, false
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if limit > 0 && page > models.MaxPage(limit) {
		_ = c.Error(apperror.BadRequest("Invalid page"))
		return 0, 0, false
	}
	return page, limit, true
}

// requireSelf rejects requests acting on another user's data.
func requireSelf(c *gin.Context, userID int64) bool {
	if middleware.GetUserID(c) != userID {
		_ = c.Error(apperror.Forbidden("You can only modify your own data"))
		return false
	}
	return true
}

// pathUser reads a user id path param that must be the caller.
func pathUser(c *gin.Context, name string) (int64, bool) {
	userID, ok := paramID(c, name)
	if !ok {
		return 0, false
	}
	return userID, requireSelf(c, userID)
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"data": data})
}

func respondOK(c *gin.Context, data interface{}) {
	respond(c, http.StatusOK, data)
}
