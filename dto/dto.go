package dto

import (
	"time"

	"github.com/google/uuid"
	"medscribe/constant"
	"medscribe/entities"
)

// ProcessMessage is the unit of work handed to the background runner.
type ProcessMessage struct {
	ConsultationId uuid.UUID `json:"consultationId"`
	ObjectName     string    `json:"objectName"`
}

type UploadResponse struct {
	Success        bool      `json:"success"`
	ConsultationId uuid.UUID `json:"consultationId"`
	Status         string    `json:"status"`
	Message        string    `json:"message,omitempty"`
}

type StatusResponse struct {
	Success             bool                   `json:"success"`
	ConsultationId      uuid.UUID              `json:"consultationId"`
	Status              string                 `json:"status"`
	Message             string                 `json:"message,omitempty"`
	Error               string                 `json:"error,omitempty"`
	Consultation        *entities.Consultation `json:"consultation,omitempty"`
	PartialData         *PartialData           `json:"partialData,omitempty"`
	ProcessingStartedAt *time.Time             `json:"processingStartedAt,omitempty"`
	CreatedAt           time.Time              `json:"createdAt"`
	UpdatedAt           time.Time              `json:"updatedAt"`
}

// PartialData carries whatever the pipeline salvaged before a failure.
type PartialData struct {
	Transcript string `json:"transcript,omitempty"`
}

type TranscribeResponse struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
}

// ConsultationRequest is the payload for manual create and update.
type ConsultationRequest struct {
	PatientName   string `json:"patientName"`
	Age           string `json:"age"`
	Gender        string `json:"gender"`
	Symptoms      string `json:"symptoms"`
	History       string `json:"history"`
	Examination   string `json:"examination"`
	Diagnosis     string `json:"diagnosis"`
	Prescription  string `json:"prescription"`
	FollowUp      string `json:"followUp"`
	Transcript    string `json:"transcript"`
	DriveLink     string `json:"driveLink"`
	DriveFileID   string `json:"fileId"`
	DriveFileName string `json:"fileName"`
}

// ConsultationListItem holds the summary fields returned by list endpoints.
type ConsultationListItem struct {
	ID          uuid.UUID                   `json:"id"`
	Status      constant.ConsultationStatus `json:"status"`
	PatientName string                      `json:"patientName"`
	Diagnosis   string                      `json:"diagnosis"`
	CreatedAt   time.Time                   `json:"createdAt"`
	UpdatedAt   time.Time                   `json:"updatedAt"`
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message,omitempty"`
	Token   string    `json:"token,omitempty"`
	User    *UserInfo `json:"user,omitempty"`
}

type UserInfo struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
