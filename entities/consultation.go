package entities

import (
	"time"

	"github.com/google/uuid"
	"medscribe/constant"
)

type Consultation struct {
	ID     uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index:idx_consultations_user_id"`

	// Medical summary fields, populated by the processing pipeline or
	// by manual edits through the CRUD endpoints.
	PatientName  string `json:"patientName" gorm:"type:varchar(255)"`
	Age          string `json:"age" gorm:"type:varchar(50)"`
	Gender       string `json:"gender" gorm:"type:varchar(50)"`
	Symptoms     string `json:"symptoms" gorm:"type:text"`
	History      string `json:"history" gorm:"type:text"`
	Examination  string `json:"examination" gorm:"type:text"`
	Diagnosis    string `json:"diagnosis" gorm:"type:text"`
	Prescription string `json:"prescription" gorm:"type:text"`
	FollowUp     string `json:"followUp" gorm:"type:text"`
	Transcript   string `json:"transcript,omitempty" gorm:"type:text"`

	// Audio artifact metadata. The bytes themselves live in object
	// storage only for the duration of one processing attempt.
	AudioFile    string `json:"audio_file,omitempty" gorm:"type:varchar(500)"`
	OriginalName string `json:"original_name,omitempty" gorm:"type:varchar(255)"`
	FileSize     int64  `json:"file_size,omitempty" gorm:"type:bigint"`
	MimeType     string `json:"mime_type,omitempty" gorm:"type:varchar(100)"`

	Status constant.ConsultationStatus `json:"status" gorm:"type:varchar(20);not null;default:'uploaded';index:idx_consultations_status"`
	Error  string                      `json:"error,omitempty" gorm:"type:text"`

	// Export metadata, set after the summary is exported to a drive.
	DriveLink     string `json:"driveLink,omitempty" gorm:"type:varchar(500)"`
	DriveFileID   string `json:"fileId,omitempty" gorm:"type:varchar(255)"`
	DriveFileName string `json:"fileName,omitempty" gorm:"type:varchar(255)"`

	ProcessedAt           *time.Time `json:"processedAt,omitempty" gorm:"type:timestamptz"`
	ProcessingStartedAt   *time.Time `json:"processingStartedAt,omitempty" gorm:"type:timestamptz"`
	ProcessingCompletedAt *time.Time `json:"processingCompletedAt,omitempty" gorm:"type:timestamptz"`
	ProcessingFailedAt    *time.Time `json:"processingFailedAt,omitempty" gorm:"type:timestamptz"`
	CreatedAt             time.Time  `json:"createdAt" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt             time.Time  `json:"updatedAt" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

func (Consultation) TableName() string {
	return "consultations"
}
