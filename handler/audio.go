package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"medscribe/constant"
	"medscribe/dto"
	"medscribe/entities"
	"medscribe/middleware"
	"medscribe/repository"
	"medscribe/service"
)

type AudioHandler struct {
	audio service.AudioService
	repo  repository.ConsultationRepository
}

func NewAudioHandler(audio service.AudioService, repo repository.ConsultationRepository) *AudioHandler {
	return &AudioHandler{
		audio: audio,
		repo:  repo,
	}
}

// Upload accepts the multipart audio file and starts background
// processing. The response returns before processing finishes.
func (h *AudioHandler) Upload(c *gin.Context) {
	userId, ok := middleware.CurrentUserId(c)
	if !ok {
		respondUnauthorized(c)
		return
	}

	file, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Success: false, Message: "Please upload an audio file"})
		return
	}

	consultation, err := h.audio.Upload(c.Request.Context(), userId, file)
	if err != nil {
		respondAudioError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.UploadResponse{
		Success:        true,
		ConsultationId: consultation.ID,
		Status:         constant.StatusUploaded.String(),
		Message:        "Audio uploaded successfully. Processing started...",
	})
}

// ProcessStep processes the upload synchronously and returns the final
// consultation.
func (h *AudioHandler) ProcessStep(c *gin.Context) {
	userId, ok := middleware.CurrentUserId(c)
	if !ok {
		respondUnauthorized(c)
		return
	}

	file, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Success: false, Message: "Please upload an audio file"})
		return
	}

	consultation, err := h.audio.UploadSync(c.Request.Context(), userId, file)
	if err != nil {
		respondAudioError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"consultationId": consultation.ID,
		"status":         consultation.Status,
		"consultation":   consultation,
	})
}

// Transcribe is the legacy transcription-only endpoint. The fallback
// policy means it always returns text.
func (h *AudioHandler) Transcribe(c *gin.Context) {
	file, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Success: false, Message: "Please upload an audio file"})
		return
	}

	text, err := h.audio.Transcribe(c.Request.Context(), file)
	if err != nil {
		if errors.Is(err, service.ErrInvalidUpload) {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Success: false, Message: err.Error()})
			return
		}
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("legacy transcription error")
		c.JSON(http.StatusOK, dto.TranscribeResponse{Success: true, Text: service.FallbackTranscript})
		return
	}

	c.JSON(http.StatusOK, dto.TranscribeResponse{Success: true, Text: text})
}

// Status reports processing progress for polling clients.
func (h *AudioHandler) Status(c *gin.Context) {
	consultation, ok := h.ownedConsultation(c)
	if !ok {
		return
	}

	resp := dto.StatusResponse{
		Success:        true,
		ConsultationId: consultation.ID,
		Status:         consultation.Status.String(),
		CreatedAt:      consultation.CreatedAt,
		UpdatedAt:      consultation.UpdatedAt,
	}

	switch consultation.Status {
	case constant.StatusCompleted:
		resp.Message = "Processing completed successfully"
		resp.Consultation = consultation
	case constant.StatusFailed:
		resp.Message = "Processing failed"
		resp.Error = consultation.Error
		if consultation.Transcript != "" {
			resp.PartialData = &dto.PartialData{Transcript: consultation.Transcript}
		}
	default:
		resp.Message = "Processing is " + consultation.Status.String()
		resp.ProcessingStartedAt = consultation.ProcessingStartedAt
	}

	c.JSON(http.StatusOK, resp)
}

// List returns summary fields for the caller's consultations.
func (h *AudioHandler) List(c *gin.Context) {
	userId, ok := middleware.CurrentUserId(c)
	if !ok {
		respondUnauthorized(c)
		return
	}

	consultations, err := h.repo.FindConsultationsByUser(c.Request.Context(), userId)
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("failed to list consultations")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Success: false, Message: "Failed to get consultations"})
		return
	}

	items := make([]dto.ConsultationListItem, 0, len(consultations))
	for _, consultation := range consultations {
		items = append(items, dto.ConsultationListItem{
			ID:          consultation.ID,
			Status:      consultation.Status,
			PatientName: consultation.PatientName,
			Diagnosis:   consultation.Diagnosis,
			CreatedAt:   consultation.CreatedAt,
			UpdatedAt:   consultation.UpdatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"count":         len(items),
		"consultations": items,
	})
}

// Get returns the full record for one owned consultation.
func (h *AudioHandler) Get(c *gin.Context) {
	consultation, ok := h.ownedConsultation(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"consultation": consultation,
	})
}

// Delete removes one owned consultation.
func (h *AudioHandler) Delete(c *gin.Context) {
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
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Success: false, Message: "Failed to delete consultation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Consultation deleted successfully",
	})
}

// ownedConsultation resolves :id scoped to the caller. Records owned by
// someone else are indistinguishable from missing ones.
func (h *AudioHandler) ownedConsultation(c *gin.Context) (*entities.Consultation, bool) {
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
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Success: false, Message: "Failed to get consultation"})
		return nil, false
	}

	return consultation, true
}

func respondAudioError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrInvalidUpload) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Success: false, Message: err.Error()})
		return
	}
	zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("audio request failed")
	c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Success: false, Message: "Failed to process audio upload"})
}

func respondNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, dto.ErrorResponse{Success: false, Message: "Consultation not found"})
}

func respondUnauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Success: false, Message: "Not authorized to access this route"})
}
