package constant

type ConsultationStatus string

const (
	StatusUploaded     ConsultationStatus = "uploaded"
	StatusTranscribing ConsultationStatus = "transcribing"
	StatusSummarizing  ConsultationStatus = "summarizing"
	StatusCompleted    ConsultationStatus = "completed"
	StatusFailed       ConsultationStatus = "failed"
)

func (s ConsultationStatus) String() string {
	return string(s)
}

// Terminal reports whether the status admits no further processing.
func (s ConsultationStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// NotSpecified is the placeholder stored for summary fields the model
// could not extract from the transcript.
const NotSpecified = "Not specified"

type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentStaging    Environment = "staging"
	EnvironmentDevelop    Environment = "develop"
)

func (e Environment) String() string {
	return string(e)
}

// AllowedAudioMimeTypes is the set of accepted upload content types.
var AllowedAudioMimeTypes = map[string]bool{
	"audio/mpeg": true,
	"audio/wav":  true,
	"audio/mp4":  true,
	"audio/m4a":  true,
	"audio/webm": true,
	"audio/ogg":  true,
}
