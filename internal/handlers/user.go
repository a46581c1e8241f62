package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/cinematch/cinematch/internal/services"
	"github.com/cinematch/cinematch/pkg/apperror"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService *services.UserService
	maxUpload   int64
}

func NewUserHandler(userService *services.UserService, maxUpload int64) *UserHandler {
	return &UserHandler{
		userService: userService,
		maxUpload:   maxUpload,
	}
}

func (h *UserHandler) RegisterRoutes(r *gin.RouterGroup) {
	users := r.Group("/users")
	{
		users.GET("", h.List)
		users.GET("/search", h.Search)
		users.GET("/:id", h.Get)
		users.PATCH("/:id", h.UpdateProfile)
		users.DELETE("/:id", h.Delete)
	}
}

func (h *UserHandler) List(c *gin.Context) {
	page, limit, ok := pageParams(c)
	if !ok {
		return
	}
	result, err := h.userService.List(c.Request.Context(), page, limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *UserHandler) Search(c *gin.Context) {
	page, limit, ok := pageParams(c)
	if !ok {
		return
	}
	result, err := h.userService.Search(c.Request.Context(), c.Query("q"), page, limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Get accepts either a numeric id or a username.
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.userService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, user)
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, ok := pathUser(c, "id")
	if !ok {
		return
	}

	var req services.UpdateProfileRequest
	if err := c.ShouldBind(&req); err != nil {
		_ = c.Error(apperror.BadRequest(err.Error()))
		return
	}

	picture, err := h.readPicture(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), userID, &req, picture)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, user)
}

// readPicture returns the optional profile_picture upload. Reading stops one
// byte past the limit so the service can reject oversize files.
func (h *UserHandler) readPicture(c *gin.Context) ([]byte, error) {
	file, err := c.FormFile("profile_picture")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.BadRequest("Invalid profile picture upload")
	}
	if file.Size > h.maxUpload {
		return nil, apperror.BadRequest("File too large")
	}

	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(io.LimitReader(f, h.maxUpload+1))
}

func (h *UserHandler) Delete(c *gin.Context) {
	userID, ok := pathUser(c, "id")
	if !ok {
		return
	}
	if err := h.userService.Delete(c.Request.Context(), userID); err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, "User deleted")
}
