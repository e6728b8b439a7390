package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"medscribe/dto"
	"medscribe/entities"
	"medscribe/middleware"
	"medscribe/repository"
)

// ConsultationHandler serves the manual CRUD surface. It bypasses the
// processing pipeline entirely.
type ConsultationHandler struct {
	repo repository.ConsultationRepository
}

func NewConsultationHandler(repo repository.ConsultationRepository) *ConsultationHandler {
	return &ConsultationHandler{repo: repo}
}

func (h *ConsultationHandler) List(c *gin.Context) {
	userId, ok := middleware.CurrentUserId(c)
	if !ok {
		respondUnauthorized(c)
		return
	}

	consultations, err := h.repo.FindConsultationsByUser(c.Request.Context(), userId)
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("failed to list consultations")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Success: false, Message: "Server error fetching consultations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"count":         len(consultations),
		"consultations": consultations,
	})
}

func (h *ConsultationHandler) Get(c *gin.Context) {
	consultation, ok := h.owned(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"consultation": consultation,
	})
}

func (h *ConsultationHandler) Create(c *gin.Context) {
	userId, ok := middleware.CurrentUserId(c)
	if !ok {
		respondUnauthorized(c)
		return
	}

	var req dto.ConsultationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Success: false, Message: "Invalid consultation payload"})
		return
	}

	consultation := &entities.Consultation{
		ID:            uuid.New(),
		UserID:        userId,
		PatientName:   req.PatientName,
		Age:           req.Age,
		Gender:        req.Gender,
		Symptoms:      req.Symptoms,
		History:       req.History,
		Examination:   req.Examination,
		Diagnosis:     req.Diagnosis,
		Prescription:  req.Prescription,
		FollowUp:      req.FollowUp,
		Transcript:    req.Transcript,
		DriveLink:     req.DriveLink,
		DriveFileID:   req.DriveFileID,
		DriveFileName: req.DriveFileName,
	}

	if err := h.repo.CreateConsultation(c.Request.Context(), consultation); err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("failed to create consultation")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Success: false, Message: "Server error saving consultation"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":      true,
		"message":      "Consultation saved successfully",
		"consultation": consultation,
	})
}

func (h *ConsultationHandler) Update(c *gin.Context) {
	consultation, ok := h.owned(c)
	if !ok {
		return
	}

	var req dto.ConsultationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Success: false, Message: "Invalid consultation payload"})
		return
	}

	updates := updateColumns(&req)
	if len(updates) > 0 {
		if err := h.repo.UpdateConsultation(c.Request.Context(), consultation.ID, updates); err != nil {
			zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("failed to update consultation")
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Success: false, Message: "Server error updating consultation"})
			return
		}
	}

	updated, err := h.repo.FindConsultationById(c.Request.Context(), consultation.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Success: false, Message: "Server error updating consultation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "Consultation updated successfully",
		"consultation": updated,
	})
}

func (h *ConsultationHandler) Delete(c *gin.Context) {
	userId, ok := middleware.CurrentUserId(c)
	if !ok {
		respondUnauthorized(c)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondNotFound(c)
		return
	}

	if err := h.repo.DeleteConsultation(c.Request.Context(), id, userId); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c)
			return
		}
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("failed to delete consultation")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Success: false, Message: "Server error deleting consultation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Consultation deleted successfully",
	})
}

func (h *ConsultationHandler) owned(c *gin.Context) (*entities.Consultation, bool) {
	userId, ok := middleware.CurrentUserId(c)
	if !ok {
		respondUnauthorized(c)
		return nil, false
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondNotFound(c)
		return nil, false
	}

	consultation, err := h.repo.FindConsultationByIdAndUser(c.Request.Context(), id, userId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c)
			return nil, false
		}
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("failed to find consultation")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Success: false, Message: "Server error fetching consultation"})
		return nil, false
	}

	return consultation, true
}

// updateColumns maps the provided fields to columns. Processing state
// and ownership are never editable through manual updates.
func updateColumns(req *dto.ConsultationRequest) map[string]interface{} {
	updates := map[string]interface{}{}
	set := func(column, value string) {
		if value != "" {
			updates[column] = value
		}
	}
	set("patient_name", req.PatientName)
	set("age", req.Age)
	set("gender", req.Gender)
	set("symptoms", req.Symptoms)
	set("history", req.History)
	set("examination", req.Examination)
	set("diagnosis", req.Diagnosis)
	set("prescription", req.Prescription)
	set("follow_up", req.FollowUp)
	set("transcript", req.Transcript)
	set("drive_link", req.DriveLink)
	set("drive_file_id", req.DriveFileID)
	set("drive_file_name", req.DriveFileName)
	return updates
}
