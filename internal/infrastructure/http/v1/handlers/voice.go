package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bartally/internal/core/apperror"
	"bartally/internal/core/id"
	"bartally/internal/core/security"
	"bartally/internal/domain/voice"
	"bartally/internal/infrastructure/http/v1/dto"
)

// VoiceHandler handles parsed voice commands from the transcription
// collaborator. Gated by the voice_counting feature flag.
type VoiceHandler struct {
	*BaseHandler
	service *voice.Service
	flags   security.FeatureFlagProvider
}

// NewVoiceHandler creates a new voice command handler.
func NewVoiceHandler(base *BaseHandler, service *voice.Service, flags security.FeatureFlagProvider) *VoiceHandler {
	return &VoiceHandler{
		BaseHandler: base,
		service:     service,
		flags:       flags,
	}
}

// Apply handles POST /voice/commands: resolves the spoken item against the
// sheet and records the count through the same path manual entry takes.
func (h *VoiceHandler) Apply(c *gin.Context) {
	ctx := c.Request.Context()

	if h.flags != nil && !h.flags.IsEnabled(ctx, security.FlagVoiceCounting) {
		h.Error(c, apperror.NewForbidden("voice counting is not enabled for this tenant"))
		return
	}

	var req dto.VoiceCommandRequest
	if !h.BindJSON(c, &req) {
		return
	}

	stocktakeID, err := id.Parse(req.StocktakeID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid stocktake id format"))
		return
	}

	result, err := h.service.Apply(ctx, stocktakeID, req.ToCommand(), h.GetUserID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CompleteIdempotency(c, http.StatusOK, "application/json", result)
	c.JSON(http.StatusOK, result)
}
