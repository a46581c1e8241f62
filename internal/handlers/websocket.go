package handlers

import (
	"net/http"

	"github.com/cinematch/cinematch/internal/middleware"
	"github.com/cinematch/cinematch/pkg/apperror"
	"github.com/cinematch/cinematch/pkg/logger"
	"github.com/cinematch/cinematch/pkg/realtime"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub      *realtime.Hub
	jwt      *middleware.JWTConfig
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

func NewWebSocketHandler(hub *realtime.Hub, jwt *middleware.JWTConfig, allowedOrigin string, logger *logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		jwt: jwt,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowedOrigin == "*" || origin == allowedOrigin
			},
		},
		logger: logger,
	}
}

func (h *WebSocketHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/ws", h.Connect)
}

// Connect upgrades an authenticated request. Browsers cannot set headers on
// websocket requests, so the access token travels in ?token=.
func (h *WebSocketHandler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		_ = c.Error(apperror.Unauthorized("Missing token"))
		return
	}
	claims, err := h.jwt.VerifyAccess(token)
	if err != nil {
		_ = c.Error(apperror.Forbidden("Invalid or expired token").Wrap(err))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	realtime.NewClient(h.hub, conn, claims.UserID).Start()
	h.logger.WithField("user_id", claims.UserID).Debug("Websocket client connected")
}
