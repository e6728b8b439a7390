package service

import (
	"context"
	"errors"
	"strings"

	"medscribe/constant"
)

// ErrEmptyTranscript is a caller precondition violation, never absorbed
// by the fallback policy.
var ErrEmptyTranscript = errors.New("empty transcript provided")

// Transcriber converts an audio file into plain text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Summarizer converts a transcript into a structured medical summary.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (*MedicalSummary, error)
}

// MedicalSummary is the structured record extracted from one
// doctor-patient conversation.
type MedicalSummary struct {
	PatientName  string `json:"patientName"`
	Age          string `json:"age"`
	Gender       string `json:"gender"`
	Symptoms     string `json:"symptoms"`
	History      string `json:"history"`
	Examination  string `json:"examination"`
	Diagnosis    string `json:"diagnosis"`
	Prescription string `json:"prescription"`
	FollowUp     string `json:"followUp"`
}

// FillMissing replaces blank fields with the placeholder so a completed
// consultation never carries empty content.
func (m *MedicalSummary) FillMissing() {
	fields := []*string{
		&m.PatientName, &m.Age, &m.Gender,
		&m.Symptoms, &m.History, &m.Examination,
		&m.Diagnosis, &m.Prescription, &m.FollowUp,
	}
	for _, f := range fields {
		if strings.TrimSpace(*f) == "" {
			*f = constant.NotSpecified
		}
	}
}
