package handler

import (
	"net/http"

	"fuelpump/internal/dto"
	"fuelpump/internal/service"

	"github.com/gin-gonic/gin"
)

type PushHandler struct{ svc service.PushService }

func NewPushHandler(svc service.PushService) *PushHandler { return &PushHandler{svc: svc} }

// Subscribe godoc
// @Summary Register a browser for shift close notifications
// @Tags push
// @Accept json
// @Security BearerAuth
// @Param body body dto.PushSubscriptionRequest true "Web Push subscription"
// @Success 201
// @Router /v1/push/subscriptions [post]
func (h *PushHandler) Subscribe(c *gin.Context) {
	var req dto.PushSubscriptionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	sess, ok := sessionFrom(c)
	if !ok {
		return
	}
	if err := h.svc.Subscribe(c.Request.Context(), sess, req); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}
