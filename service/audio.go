package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"medscribe/constant"
	"medscribe/dto"
	"medscribe/entities"
	"medscribe/pkg/storage"
	"medscribe/repository"
)

// ErrInvalidUpload marks caller precondition violations that map to a
// client error and never start background work.
var ErrInvalidUpload = errors.New("invalid upload")

// AudioService accepts uploaded audio, stores it in the holding area,
// creates the consultation record and hands processing off.
type AudioService interface {
	Upload(ctx context.Context, userId uuid.UUID, file *multipart.FileHeader) (*entities.Consultation, error)
	UploadSync(ctx context.Context, userId uuid.UUID, file *multipart.FileHeader) (*entities.Consultation, error)
	Transcribe(ctx context.Context, file *multipart.FileHeader) (string, error)
}

type audioService struct {
	repo        repository.ConsultationRepository
	store       storage.Storage
	pipeline    PipelineService
	dispatcher  Dispatcher
	transcriber Transcriber
}

func NewAudioService(repo repository.ConsultationRepository, store storage.Storage, pipeline PipelineService, dispatcher Dispatcher, transcriber Transcriber) AudioService {
	return &audioService{
		repo:        repo,
		store:       store,
		pipeline:    pipeline,
		dispatcher:  dispatcher,
		transcriber: transcriber,
	}
}

// Upload stores the audio, creates the record and starts background
// processing. The caller gets an immediate acknowledgement.
func (s *audioService) Upload(ctx context.Context, userId uuid.UUID, file *multipart.FileHeader) (*entities.Consultation, error) {
	consultation, err := s.intake(ctx, userId, file)
	if err != nil {
		return nil, err
	}

	if err := s.dispatcher.Dispatch(ctx, dto.ProcessMessage{
		ConsultationId: consultation.ID,
		ObjectName:     consultation.AudioFile,
	}); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to dispatch processing")
		return nil, err
	}

	return consultation, nil
}

// UploadSync stores the audio and processes it before returning,
// exposing the summarizing state along the way.
func (s *audioService) UploadSync(ctx context.Context, userId uuid.UUID, file *multipart.FileHeader) (*entities.Consultation, error) {
	consultation, err := s.intake(ctx, userId, file)
	if err != nil {
		return nil, err
	}

	return s.pipeline.ProcessSteps(ctx, consultation.ID, consultation.AudioFile)
}

// Transcribe serves the legacy transcription-only endpoint. Nothing is
// persisted and the fallback policy means it always yields text.
func (s *audioService) Transcribe(ctx context.Context, file *multipart.FileHeader) (string, error) {
	if err := validateUpload(file); err != nil {
		return "", err
	}

	tempDir, err := os.MkdirTemp("", "transcribe")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tempDir)

	audioPath := filepath.Join(tempDir, filepath.Base(file.Filename))
	if err := saveUpload(file, audioPath); err != nil {
		return "", err
	}

	return s.transcriber.Transcribe(ctx, audioPath)
}

// intake validates the upload, writes the bytes to the holding area and
// creates the placeholder record. No consultation exists until the
// upload has passed validation.
func (s *audioService) intake(ctx context.Context, userId uuid.UUID, file *multipart.FileHeader) (*entities.Consultation, error) {
	if err := validateUpload(file); err != nil {
		return nil, err
	}

	id := uuid.New()
	objectName := fmt.Sprintf("audio/%s%s", id.String(), filepath.Ext(file.Filename))

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	mimeType := file.Header.Get("Content-Type")
	if err := s.store.Upload(ctx, objectName, src, file.Size, mimeType); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("object", objectName).Msg("failed to store audio")
		return nil, err
	}

	consultation := &entities.Consultation{
		ID:           id,
		UserID:       userId,
		AudioFile:    objectName,
		OriginalName: file.Filename,
		FileSize:     file.Size,
		MimeType:     mimeType,
		Status:       constant.StatusUploaded,
		PatientName:  "Processing...",
		Diagnosis:    "Pending transcription",
	}

	if err := s.repo.CreateConsultation(ctx, consultation); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to create consultation record")
		if delErr := s.store.Delete(ctx, objectName); delErr != nil {
			zerolog.Ctx(ctx).Error().Err(delErr).Str("object", objectName).Msg("failed to clean up audio object")
		}
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("consultation_id", id.String()).
		Str("mime_type", mimeType).
		Int64("file_size", file.Size).
		Msg("consultation record created")

	return consultation, nil
}

func validateUpload(file *multipart.FileHeader) error {
	if file == nil {
		return fmt.Errorf("%w: please upload an audio file", ErrInvalidUpload)
	}
	if file.Size == 0 {
		return fmt.Errorf("%w: audio file is empty", ErrInvalidUpload)
	}
	if !constant.AllowedAudioMimeTypes[file.Header.Get("Content-Type")] {
		return fmt.Errorf("%w: invalid file type, please upload an audio file (MP3, WAV, M4A, etc.)", ErrInvalidUpload)
	}
	return nil
}

func saveUpload(file *multipart.FileHeader, dst string) error {
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, src)
	return err
}
