package app

import (
	"net/http"

	"cafelog/internal/service"
	"cafelog/internal/util"

	"github.com/gin-gonic/gin"
)

type ParticipationHandler struct {
	participationService service.ParticipationService
}

func NewParticipationHandler(participationService service.ParticipationService) *ParticipationHandler {
	return &ParticipationHandler{participationService: participationService}
}

// RespondToInvitation handles accepting or rejecting a visit invitation
// POST /api/v1/visits/:id/respond
func (h *ParticipationHandler) RespondToInvitation(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	visitID := c.Param("id")
	if visitID == "" {
		util.BadRequest(c, "Visit ID is required")
		return
	}

	var req service.RespondInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	participation, err := h.participationService.RespondToInvitation(visitID, userID.(string), req)
	if err != nil {
		domainError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Invitation response recorded", gin.H{"participation": participation})
}

// GetPendingInvitations handles listing the caller's pending invitations
// GET /api/v1/invitations/pending
func (h *ParticipationHandler) GetPendingInvitations(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	invitations, err := h.participationService.ListPendingInvitations(c.Request.Context(), userID.(string))
	if err != nil {
		util.ErrorResponse(c, http.StatusInternalServerError, "Failed to list pending invitations", nil)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Pending invitations retrieved successfully", gin.H{"invitations": invitations})
}

// GetParticipants handles listing all participants of a visit
// GET /api/v1/visits/:id/participants
func (h *ParticipationHandler) GetParticipants(c *gin.Context) {
	visitID := c.Param("id")
	if visitID == "" {
		util.BadRequest(c, "Visit ID is required")
		return
	}

	participants, err := h.participationService.ListParticipants(visitID)
	if err != nil {
		domainError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Participants retrieved successfully", gin.H{"participants": participants})
}

// RemoveParticipant handles removing an invited participant from a visit
// DELETE /api/v1/visits/:id/participants/:userID
func (h *ParticipationHandler) RemoveParticipant(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	visitID := c.Param("id")
	targetUserID := c.Param("userID")
	if visitID == "" || targetUserID == "" {
		util.BadRequest(c, "Visit ID and user ID are required")
		return
	}

	if err := h.participationService.RemoveParticipant(visitID, userID.(string), targetUserID); err != nil {
		domainError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Participant removed successfully", nil)
}
