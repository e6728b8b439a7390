package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medscribe/constant"
)

func TestParseSummaryStrictJSON(t *testing.T) {
	summary, err := parseSummary(`{"patientName":"Jane Doe","diagnosis":"flu"}`)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", summary.PatientName)
	assert.Equal(t, "flu", summary.Diagnosis)
}

func TestParseSummaryWrappedInProse(t *testing.T) {
	content := "Sure! Here is the structured summary:\n```json\n{\"patientName\":\"Jane Doe\",\"age\":\"30\"}\n```\nLet me know if you need anything else."
	summary, err := parseSummary(content)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", summary.PatientName)
	assert.Equal(t, "30", summary.Age)
}

func TestParseSummaryGarbage(t *testing.T) {
	_, err := parseSummary("I could not process that request.")
	assert.Error(t, err)
}

func TestFillMissingBackfillsBlankFields(t *testing.T) {
	summary := &MedicalSummary{PatientName: "Jane Doe", Symptoms: "  "}
	summary.FillMissing()

	assert.Equal(t, "Jane Doe", summary.PatientName)
	assert.Equal(t, constant.NotSpecified, summary.Symptoms)
	assert.Equal(t, constant.NotSpecified, summary.Age)
	assert.Equal(t, constant.NotSpecified, summary.Gender)
	assert.Equal(t, constant.NotSpecified, summary.History)
	assert.Equal(t, constant.NotSpecified, summary.Examination)
	assert.Equal(t, constant.NotSpecified, summary.Diagnosis)
	assert.Equal(t, constant.NotSpecified, summary.Prescription)
	assert.Equal(t, constant.NotSpecified, summary.FollowUp)
}
