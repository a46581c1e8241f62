package handlers

import (
	"github.com/cinematch/cinematch/internal/services"
	"github.com/gin-gonic/gin"
)

type RecommendationHandler struct {
	recommendationService *services.RecommendationService
	contactService        *services.ContactService
}

func NewRecommendationHandler(recommendationService *services.RecommendationService, contactService *services.ContactService) *RecommendationHandler {
	return &RecommendationHandler{
		recommendationService: recommendationService,
		contactService:        contactService,
	}
}

func (h *RecommendationHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/recommendations", h.Request)
	r.GET("/recommendations/:user_id", h.Get)
	r.POST("/contact", h.Contact)
}

func (h *RecommendationHandler) Request(c *gin.Context) {
	var req services.RecommendRequest
	if !bindJSON(c, &req) {
		return
	}
	if !requireSelf(c, req.UserID) {
		return
	}

	resp, err := h.recommendationService.Request(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, resp)
}

func (h *RecommendationHandler) Get(c *gin.Context) {
	userID, ok := paramID(c, "user_id")
	if !ok {
		return
	}
	ids, err := h.recommendationService.Get(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, ids)
}

// Contact relays the contact form to the admin mailbox.
func (h *RecommendationHandler) Contact(c *gin.Context) {
	var req services.ContactRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.contactService.Send(c.Request.Context(), &req); err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, "Message sent successfully")
}
