package app

import (
	"net/http"

	"cafelog/internal/service"
	"cafelog/internal/util"

	"github.com/gin-gonic/gin"
)

type ReviewHandler struct {
	reviewService service.ReviewService
}

func NewReviewHandler(reviewService service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

// CreateReview handles creating the caller's review on a visit
// POST /api/v1/visits/:id/reviews
func (h *ReviewHandler) CreateReview(c *gin.Context) {
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

	var req service.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	review, err := h.reviewService.CreateReview(visitID, userID.(string), req)
	if err != nil {
		domainError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusCreated, "Review created successfully", gin.H{"review": review})
}

// GetReviewsByVisit handles listing all reviews of a visit
// GET /api/v1/visits/:id/reviews
func (h *ReviewHandler) GetReviewsByVisit(c *gin.Context) {
	visitID := c.Param("id")
	if visitID == "" {
		util.BadRequest(c, "Visit ID is required")
		return
	}

	reviews, err := h.reviewService.GetReviewsByVisit(visitID)
	if err != nil {
		util.ErrorResponse(c, http.StatusInternalServerError, "Failed to list reviews", nil)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Reviews retrieved successfully", gin.H{"reviews": reviews})
}

// UpdateReview handles updating the caller's own review
// PUT /api/v1/reviews/:id
func (h *ReviewHandler) UpdateReview(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	reviewID := c.Param("id")
	if reviewID == "" {
		util.BadRequest(c, "Review ID is required")
		return
	}

	var req service.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	review, err := h.reviewService.UpdateReview(reviewID, userID.(string), req)
	if err != nil {
		domainError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Review updated successfully", gin.H{"review": review})
}

// DeleteReview handles deleting the caller's own review
// DELETE /api/v1/reviews/:id
func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	reviewID := c.Param("id")
	if reviewID == "" {
		util.BadRequest(c, "Review ID is required")
		return
	}

	if err := h.reviewService.DeleteReview(reviewID, userID.(string)); err != nil {
		domainError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Review deleted successfully", nil)
}
