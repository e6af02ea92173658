package statex

import (
	contractx "github.com/brandguard-ai/brandguard/audit/contract"
)

// AuditState is the shared record a single audit request flows through.
// It lives for one request and is never persisted.
type AuditState struct {
	// Immutable inputs.
	VideoURL string `json:"video_url"`
	VideoID  string `json:"video_id"`

	// Produced by extraction.
	Transcript    string         `json:"transcript"`
	OCRText       []string       `json:"ocr_text"`
	VideoMetadata map[string]any `json:"video_metadata,omitempty"`

	// Produced by judgment; ComplianceResults and Errors also accept
	// extraction-stage failures.
	ComplianceResults []contractx.ComplianceIssue `json:"compliance_results"`
	FinalStatus       string                      `json:"final_status"`
	FinalReport       string                      `json:"final_report"`
	Errors            []string                    `json:"errors"`
}

// Delta is the full output record of one pipeline node. Apply merges it with
// an explicit reducer per field: ComplianceResults and Errors append, all
// other fields overwrite only when the delta carries a value.
type Delta struct {
	Transcript    *string
	OCRText       *[]string
	VideoMetadata map[string]any

	ComplianceResults []contractx.ComplianceIssue
	FinalStatus       string
	FinalReport       string
	Errors            []string
}

func New(videoURL, videoID string) *AuditState {
	return &AuditState{
		VideoURL:          videoURL,
		VideoID:           videoID,
		OCRText:           []string{},
		ComplianceResults: []contractx.ComplianceIssue{},
		Errors:            []string{},
	}
}

// Apply folds a node delta into the state. ComplianceResults and Errors only
// ever grow; scalar fields follow last-writer-wins.
func (s *AuditState) Apply(d Delta) {
	if d.Transcript != nil {
		s.Transcript = *d.Transcript
	}
	if d.OCRText != nil {
		s.OCRText = *d.OCRText
	}
	if d.VideoMetadata != nil {
		s.VideoMetadata = d.VideoMetadata
	}
	if d.FinalStatus != "" {
		s.FinalStatus = d.FinalStatus
	}
	if d.FinalReport != "" {
		s.FinalReport = d.FinalReport
	}
	s.ComplianceResults = append(s.ComplianceResults, d.ComplianceResults...)
	s.Errors = append(s.Errors, d.Errors...)
}

// String returns a pointer for Delta scalar fields.
func String(v string) *string {
	return &v
}

// Strings returns a pointer for Delta list-overwrite fields.
func Strings(v []string) *[]string {
	return &v
}
