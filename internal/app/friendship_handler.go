package app

import (
	"net/http"

	"cafelog/internal/service"
	"cafelog/internal/util"

	"github.com/gin-gonic/gin"
)

type FriendshipHandler struct {
	friendshipService service.FriendshipService
}

func NewFriendshipHandler(friendshipService service.FriendshipService) *FriendshipHandler {
	return &FriendshipHandler{friendshipService: friendshipService}
}

// SendFriendRequest handles sending a friend request
// POST /api/v1/friendships/request
func (h *FriendshipHandler) SendFriendRequest(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	var req struct {
		AddresseeID string `json:"addressee_id" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	friendship, err := h.friendshipService.SendFriendRequest(userID.(string), req.AddresseeID)
	if err != nil {
		domainError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusCreated, "Friend request sent successfully", gin.H{"friendship": friendship})
}

// AcceptFriendRequest handles accepting a friend request
// POST /api/v1/friendships/:id/accept
func (h *FriendshipHandler) AcceptFriendRequest(c *gin.Context) {
	h.respond(c, true)
}

// RejectFriendRequest handles rejecting a friend request
// POST /api/v1/friendships/:id/reject
func (h *FriendshipHandler) RejectFriendRequest(c *gin.Context) {
	h.respond(c, false)
}

func (h *FriendshipHandler) respond(c *gin.Context, accept bool) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	friendshipID := c.Param("id")
	if friendshipID == "" {
		util.BadRequest(c, "Friendship ID is required")
		return
	}

	friendship, err := h.friendshipService.RespondFriendRequest(friendshipID, userID.(string), accept)
	if err != nil {
		domainError(c, err)
		return
	}

	message := "Friend request rejected successfully"
	if accept {
		message = "Friend request accepted successfully"
	}
	util.SuccessResponse(c, http.StatusOK, message, gin.H{"friendship": friendship})
}

// RemoveFriend handles removing any relation with another user
// DELETE /api/v1/friendships/user/:userID
func (h *FriendshipHandler) RemoveFriend(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	otherUserID := c.Param("userID")
	if otherUserID == "" {
		util.BadRequest(c, "User ID is required")
		return
	}

	if err := h.friendshipService.RemoveFriend(userID.(string), otherUserID); err != nil {
		domainError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Friend removed successfully", nil)
}

// GetFriends handles listing confirmed friends
// GET /api/v1/friendships/friends
func (h *FriendshipHandler) GetFriends(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	friends, err := h.friendshipService.ListConfirmedFriends(userID.(string))
	if err != nil {
		util.ErrorResponse(c, http.StatusInternalServerError, "Failed to list friends", nil)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Friends retrieved successfully", gin.H{"friends": friends})
}

// GetPendingRequests handles listing pending friend requests for the caller
// GET /api/v1/friendships/pending
func (h *FriendshipHandler) GetPendingRequests(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	friendships, err := h.friendshipService.ListPendingRequests(userID.(string))
	if err != nil {
		util.ErrorResponse(c, http.StatusInternalServerError, "Failed to list pending requests", nil)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Pending requests retrieved successfully", gin.H{"friendships": friendships})
}

// GetFriendshipStatus handles getting the relation status with another user
// GET /api/v1/friendships/status/:userID
func (h *FriendshipHandler) GetFriendshipStatus(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	targetUserID := c.Param("userID")
	if targetUserID == "" {
		util.BadRequest(c, "User ID is required")
		return
	}

	status, err := h.friendshipService.GetFriendshipStatus(userID.(string), targetUserID)
	if err != nil {
		util.ErrorResponse(c, http.StatusInternalServerError, "Failed to get friendship status", nil)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Friendship status retrieved successfully", gin.H{"status": status})
}
