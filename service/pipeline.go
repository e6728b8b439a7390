package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"medscribe/constant"
	"medscribe/dto"
	"medscribe/entities"
	"medscribe/pkg/storage"
	"medscribe/repository"
)

// PipelineService drives one consultation from uploaded audio to a
// completed structured summary. The stored audio object and any local
// copy are deleted on every exit path.
type PipelineService interface {
	Process(ctx context.Context, message dto.ProcessMessage) error
	ProcessSteps(ctx context.Context, consultationId uuid.UUID, objectName string) (*entities.Consultation, error)
}

type pipeline struct {
	repo        repository.ConsultationRepository
	store       storage.Storage
	transcriber Transcriber
	summarizer  Summarizer
}

func NewPipeline(repo repository.ConsultationRepository, store storage.Storage, transcriber Transcriber, summarizer Summarizer) PipelineService {
	return &pipeline{
		repo:        repo,
		store:       store,
		transcriber: transcriber,
		summarizer:  summarizer,
	}
}

// Process is the background path: uploaded -> transcribing -> completed
// or failed. The summarizing sub-step is folded into the same sweep.
func (p *pipeline) Process(ctx context.Context, message dto.ProcessMessage) (err error) {
	zerolog.Ctx(ctx).Info().Str("consultation_id", message.ConsultationId.String()).Msg("processing consultation")

	consultation, err := p.repo.FindConsultationById(ctx, message.ConsultationId)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to find consultation by id")
		return err
	}

	if consultation.Status != constant.StatusUploaded {
		zerolog.Ctx(ctx).Info().
			Str("consultation_id", message.ConsultationId.String()).
			Str("status", consultation.Status.String()).
			Msg("consultation is not awaiting processing")
		return nil
	}

	// The stored audio is ephemeral. Delete it when this run exits, no
	// matter how far it got.
	defer p.deleteAudio(ctx, message.ObjectName)

	var transcript string

	// Failure is terminal for this attempt. Record it, keep any partial
	// transcript, and absorb the error so the message is not redelivered.
	defer func() {
		if err != nil {
			failure := map[string]interface{}{
				"status":               constant.StatusFailed,
				"error":                err.Error(),
				"processing_failed_at": time.Now(),
			}
			if transcript != "" {
				failure["transcript"] = transcript
			}
			if updateErr := p.repo.UpdateConsultation(ctx, message.ConsultationId, failure); updateErr != nil {
				zerolog.Ctx(ctx).Error().Err(updateErr).Msg("failed to record processing failure")
			}
			err = nil
		}
	}()

	if err = p.markTranscribing(ctx, message.ConsultationId); err != nil {
		return err
	}

	audioPath, cleanup, err := p.fetchAudio(ctx, message.ConsultationId, message.ObjectName)
	defer cleanup()
	if err != nil {
		return err
	}

	transcript, err = p.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return err
	}

	summary, err := p.summarizer.Summarize(ctx, transcript)
	if err != nil {
		return err
	}
	if summary == nil {
		err = fmt.Errorf("invalid summary data received from processing")
		return err
	}

	if err = p.complete(ctx, message.ConsultationId, summary, transcript); err != nil {
		return err
	}

	zerolog.Ctx(ctx).Info().Str("consultation_id", message.ConsultationId.String()).Msg("consultation processing completed")
	return nil
}

// ProcessSteps is the synchronous path. It exposes the distinct
// summarizing state for callers polling at finer granularity and
// returns the final record.
func (p *pipeline) ProcessSteps(ctx context.Context, consultationId uuid.UUID, objectName string) (*entities.Consultation, error) {
	defer p.deleteAudio(ctx, objectName)

	fail := func(cause error) (*entities.Consultation, error) {
		failure := map[string]interface{}{
			"status":               constant.StatusFailed,
			"error":                cause.Error(),
			"processing_failed_at": time.Now(),
		}
		if updateErr := p.repo.UpdateConsultation(ctx, consultationId, failure); updateErr != nil {
			zerolog.Ctx(ctx).Error().Err(updateErr).Msg("failed to record processing failure")
		}
		return nil, cause
	}

	if err := p.markTranscribing(ctx, consultationId); err != nil {
		return fail(err)
	}

	audioPath, cleanup, err := p.fetchAudio(ctx, consultationId, objectName)
	defer cleanup()
	if err != nil {
		return fail(err)
	}

	transcript, err := p.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return fail(err)
	}

	if err := p.repo.UpdateConsultation(ctx, consultationId, map[string]interface{}{
		"status":     constant.StatusSummarizing,
		"transcript": transcript,
	}); err != nil {
		return fail(err)
	}

	summary, err := p.summarizer.Summarize(ctx, transcript)
	if err != nil {
		return fail(err)
	}

	if err := p.complete(ctx, consultationId, summary, transcript); err != nil {
		return fail(err)
	}

	return p.repo.FindConsultationById(ctx, consultationId)
}

func (p *pipeline) markTranscribing(ctx context.Context, consultationId uuid.UUID) error {
	err := p.repo.UpdateConsultation(ctx, consultationId, map[string]interface{}{
		"status":                constant.StatusTranscribing,
		"processing_started_at": time.Now(),
	})
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to update consultation status")
	}
	return err
}

func (p *pipeline) deleteAudio(ctx context.Context, objectName string) {
	if err := p.store.Delete(ctx, objectName); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("object", objectName).Msg("failed to delete audio object")
	}
}

// fetchAudio downloads the stored object to a scratch directory and
// re-validates it; the upload could have vanished between the request
// and the background run. The returned cleanup removes the scratch
// directory and is safe to call unconditionally.
func (p *pipeline) fetchAudio(ctx context.Context, consultationId uuid.UUID, objectName string) (string, func(), error) {
	tempDir := filepath.Join("temp", consultationId.String())
	cleanup := func() {
		if err := os.RemoveAll(tempDir); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("failed to remove temp directory")
		}
	}

	if err := os.MkdirAll(tempDir, os.ModePerm); err != nil {
		return "", cleanup, err
	}

	audioPath := filepath.Join(tempDir, filepath.Base(objectName))
	if err := p.store.Download(ctx, objectName, audioPath); err != nil {
		return "", cleanup, fmt.Errorf("audio file not found: %s", objectName)
	}

	info, err := os.Stat(audioPath)
	if err != nil {
		return "", cleanup, fmt.Errorf("audio file not found: %s", objectName)
	}
	if info.Size() == 0 {
		return "", cleanup, fmt.Errorf("audio file is empty")
	}

	return audioPath, cleanup, nil
}

func (p *pipeline) complete(ctx context.Context, consultationId uuid.UUID, summary *MedicalSummary, transcript string) error {
	summary.FillMissing()
	now := time.Now()
	return p.repo.UpdateConsultation(ctx, consultationId, map[string]interface{}{
		"patient_name":            summary.PatientName,
		"age":                     summary.Age,
		"gender":                  summary.Gender,
		"symptoms":                summary.Symptoms,
		"history":                 summary.History,
		"examination":             summary.Examination,
		"diagnosis":               summary.Diagnosis,
		"prescription":            summary.Prescription,
		"follow_up":               summary.FollowUp,
		"transcript":              transcript,
		"status":                  constant.StatusCompleted,
		"processed_at":            now,
		"processing_completed_at": now,
	})
}
