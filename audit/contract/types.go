package contract

// Audit outcome statuses as reported by the judgment stage.
const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
)

// ComplianceIssue is a single flagged violation. Immutable once produced.
type ComplianceIssue struct {
	Category    string `json:"category"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Timestamp   string `json:"timestamp,omitempty"`
}

// RuleExcerpt is one retrieved compliance-rule passage.
type RuleExcerpt struct {
	Content string  `json:"content"`
	Source  string  `json:"source,omitempty"`
	Score   float64 `json:"score,omitempty"`
}

// JudgeRequest carries the extracted video content into a single judgment call.
type JudgeRequest struct {
	Transcript    string         `json:"transcript"`
	OCRText       []string       `json:"ocr_text"`
	VideoMetadata map[string]any `json:"video_metadata"`
	Rules         []RuleExcerpt  `json:"rules"`
}

// Verdict is the structured JSON object the judge model must return.
type Verdict struct {
	ComplianceResults []ComplianceIssue `json:"compliance_results"`
	Status            string            `json:"status"`
	FinalReport       string            `json:"final_report"`
}

// Insights is the annotation response flattened into the fields the
// extraction node consumes. It carries no provider types.
type Insights struct {
	SpeechSegments   []SpeechSegment
	TextAnnotations  []string
	LabelAnnotations []LabelAnnotation
}

// SpeechSegment holds the recognition alternatives for one speech span,
// ordered most-confident first.
type SpeechSegment struct {
	Alternatives []SpeechAlternative
}

type SpeechAlternative struct {
	Transcript string
	Confidence float32
}

// LabelAnnotation groups the detected segments of one label, in provider
// response order.
type LabelAnnotation struct {
	Label    string
	Segments []LabelSegment
}

// LabelSegment is one detected span with offsets in seconds.
type LabelSegment struct {
	StartSeconds float64
	EndSeconds   float64
}
