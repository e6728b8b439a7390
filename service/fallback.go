package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// FallbackTranscript is the deterministic transcript returned when the
// speech-to-text service is unavailable or unconfigured.
const FallbackTranscript = `DOCTOR: Good morning, how are you feeling today?
PATIENT: Not too bad, doctor. Still having some headaches though.
DOCTOR: On a scale of 1-10, how severe is the pain?
PATIENT: About a 6 or 7. It's been persistent.
DOCTOR: Any other symptoms? Nausea, vision changes?
PATIENT: Some occasional dizziness, but no vision problems.
DOCTOR: Let me check your blood pressure. 130/85, that's normal. Any family history of migraines?
PATIENT: Yes, my mother used to get migraines.
DOCTOR: Based on your symptoms and family history, this appears to be tension headaches. I recommend ibuprofen as needed and stress management techniques.
PATIENT: Thank you, doctor.
DOCTOR: Follow up in 2 weeks if the symptoms persist.`

// FallbackSummary returns the deterministic summary used when the
// language model is unavailable or returns unusable output.
func FallbackSummary() *MedicalSummary {
	return &MedicalSummary{
		PatientName:  "John Smith",
		Age:          "45",
		Gender:       "Male",
		Symptoms:     "Persistent headaches, pain level 6-7/10, occasional dizziness",
		History:      "Family history of migraines (mother)",
		Examination:  "Blood pressure 130/85 - normal",
		Diagnosis:    "Tension headaches",
		Prescription: "Ibuprofen as needed for pain relief",
		FollowUp:     "Return in 2 weeks if symptoms persist, practice stress management techniques",
	}
}

type fallbackTranscriber struct {
	delay time.Duration
}

// NewFallbackTranscriber returns the canned transcript after a simulated
// processing delay.
func NewFallbackTranscriber(delay time.Duration) Transcriber {
	return &fallbackTranscriber{delay: delay}
}

func (t *fallbackTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	zerolog.Ctx(ctx).Info().Msg("using fallback transcription")
	select {
	case <-time.After(t.delay):
	case <-ctx.Done():
	}
	return FallbackTranscript, nil
}

type fallbackSummarizer struct {
	delay time.Duration
}

// NewFallbackSummarizer returns the canned summary after a simulated
// processing delay.
func NewFallbackSummarizer(delay time.Duration) Summarizer {
	return &fallbackSummarizer{delay: delay}
}

func (s *fallbackSummarizer) Summarize(ctx context.Context, transcript string) (*MedicalSummary, error) {
	zerolog.Ctx(ctx).Info().Msg("using fallback medical summary")
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
	}
	return FallbackSummary(), nil
}
