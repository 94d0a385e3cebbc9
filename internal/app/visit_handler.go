package app

import (
	"net/http"
	"strconv"
	"time"

	"cafelog/internal/model"
	"cafelog/internal/service"
	"cafelog/internal/util"

	"github.com/gin-gonic/gin"
)

type VisitHandler struct {
	visitService     service.VisitService
	cloudinaryClient *util.CloudinaryClient
}

func NewVisitHandler(visitService service.VisitService, cloudinaryClient *util.CloudinaryClient) *VisitHandler {
	return &VisitHandler{
		visitService:     visitService,
		cloudinaryClient: cloudinaryClient,
	}
}

// CreateVisit handles shared visit creation with photo upload
// POST /api/v1/visits (multipart/form-data)
//
// Photos are uploaded before the database transaction; if any upload fails the
// request fails and nothing is persisted. The visit row, the creator's
// participation and review, and the invitations are then created atomically.
func (h *VisitHandler) CreateVisit(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		util.BadRequest(c, "Failed to parse multipart form")
		return
	}

	files := form.File["images"]
	if len(files) < model.VisitMinImages || len(files) > model.VisitMaxImages {
		util.BadRequest(c, "A visit must have between 1 and 5 images")
		return
	}

	if h.cloudinaryClient == nil {
		util.ErrorResponse(c, http.StatusServiceUnavailable, "Image uploads are currently unavailable", nil)
		return
	}

	req := service.CreateVisitRequest{
		CafeID:         c.PostForm("cafe_id"),
		ParticipantIDs: form.Value["participant_ids"],
	}
	if req.CafeID == "" {
		util.BadRequest(c, "Cafe ID is required")
		return
	}

	rating, err := strconv.Atoi(c.PostForm("rating"))
	if err != nil || rating < 1 || rating > 5 {
		util.BadRequest(c, "Rating must be between 1 and 5")
		return
	}
	req.Rating = rating

	if comment := c.PostForm("comment"); comment != "" {
		req.Comment = &comment
	}

	if dateStr := c.PostForm("visit_date"); dateStr != "" {
		visitDate, err := time.Parse(time.RFC3339, dateStr)
		if err != nil {
			util.BadRequest(c, "Visit date must be RFC3339 formatted")
			return
		}
		req.VisitDate = &visitDate
	}

	if ratingStr := c.PostForm("review_rating"); ratingStr != "" {
		reviewRating, err := strconv.Atoi(ratingStr)
		if err != nil || reviewRating < 1 || reviewRating > 5 {
			util.BadRequest(c, "Review rating must be between 1 and 5")
			return
		}
		req.ReviewRating = &reviewRating
		if reviewComment := c.PostForm("review_comment"); reviewComment != "" {
			req.ReviewComment = &reviewComment
		}
	}

	fileDataList := make([]util.FileData, 0, len(files))
	for _, fileHeader := range files {
		file, err := fileHeader.Open()
		if err != nil {
			util.BadRequest(c, "Failed to read uploaded file")
			return
		}
		fileData, err := util.ReadFileFromReader(file, fileHeader.Filename)
		file.Close()
		if err != nil {
			util.BadRequest(c, "Failed to read uploaded file")
			return
		}
		fileDataList = append(fileDataList, *fileData)
	}

	imageURLs, err := h.cloudinaryClient.ProcessMultipleFiles(fileDataList)
	if err != nil {
		util.ErrorResponse(c, http.StatusBadGateway, "Failed to upload images", nil)
		return
	}
	req.ImageURLs = imageURLs

	visit, err := h.visitService.CreateSharedVisit(userID.(string), req)
	if err != nil {
		domainError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusCreated, "Visit created successfully", gin.H{"visit": visit})
}

// GetVisit handles getting a visit by ID
// GET /api/v1/visits/:id
func (h *VisitHandler) GetVisit(c *gin.Context) {
	visitID := c.Param("id")
	if visitID == "" {
		util.BadRequest(c, "Visit ID is required")
		return
	}

	visit, err := h.visitService.GetVisitByID(visitID)
	if err != nil {
		domainError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Visit retrieved successfully", gin.H{"visit": visit})
}

// GetMyVisits handles listing the caller's own visits
// GET /api/v1/visits/mine
func (h *VisitHandler) GetMyVisits(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	visits, err := h.visitService.GetVisitsByCreator(userID.(string), limit, offset)
	if err != nil {
		util.ErrorResponse(c, http.StatusInternalServerError, "Failed to list visits", nil)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Visits retrieved successfully", gin.H{"visits": visits})
}

// UpdateVisit handles updating a visit's own facts
// PUT /api/v1/visits/:id
func (h *VisitHandler) UpdateVisit(c *gin.Context) {
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

	var req service.UpdateVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	visit, err := h.visitService.UpdateVisit(visitID, userID.(string), req)
	if err != nil {
		domainError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Visit updated successfully", gin.H{"visit": visit})
}

// DeleteVisit handles deleting a visit with its participations and reviews
// DELETE /api/v1/visits/:id
func (h *VisitHandler) DeleteVisit(c *gin.Context) {
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

	if err := h.visitService.DeleteVisit(visitID, userID.(string)); err != nil {
		domainError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Visit deleted successfully", nil)
}
