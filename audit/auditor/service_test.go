package auditor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	contractx "github.com/brandguard-ai/brandguard/audit/contract"
)

type fakeResolver struct {
	t   *testing.T
	err error
}

func (f *fakeResolver) Download(ctx context.Context, rawURL string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(f.t.TempDir(), "video.mp4")
	if err := os.WriteFile(path, []byte("mp4"), 0o600); err != nil {
		f.t.Fatalf("write temp video: %v", err)
	}
	return path, nil
}

type fakeStore struct{}

func (fakeStore) Upload(ctx context.Context, localPath, objectName string) (string, error) {
	return "gs://bucket/" + objectName, nil
}

func (fakeStore) Exists(ctx context.Context, objectName string) (bool, error) {
	return false, nil
}

type fakeAnnotator struct {
	insights *contractx.Insights
}

func (f *fakeAnnotator) Annotate(ctx context.Context, gcsURI string) (*contractx.Insights, error) {
	return f.insights, nil
}

type fakeRetriever struct {
	excerpts []contractx.RuleExcerpt
	calls    int
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string, k int) ([]contractx.RuleExcerpt, error) {
	f.calls++
	return f.excerpts, nil
}

type fakeJudge struct {
	verdict contractx.Verdict
	calls   int
}

func (f *fakeJudge) Evaluate(ctx context.Context, req contractx.JudgeRequest) (contractx.Verdict, error) {
	f.calls++
	return f.verdict, nil
}

func speechInsights(transcript string) *contractx.Insights {
	return &contractx.Insights{
		SpeechSegments: []contractx.SpeechSegment{
			{Alternatives: []contractx.SpeechAlternative{{Transcript: transcript, Confidence: 0.95}}},
		},
	}
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	t.Parallel()

	_, err := New(nil, fakeStore{}, &fakeAnnotator{}, &fakeRetriever{}, &fakeJudge{}, Config{})
	if err == nil || !strings.Contains(err.Error(), "resolver") {
		t.Fatalf("expected resolver error, got %v", err)
	}

	_, err = New(&fakeResolver{t: t}, fakeStore{}, &fakeAnnotator{}, &fakeRetriever{}, nil, Config{})
	if err == nil || !strings.Contains(err.Error(), "judge") {
		t.Fatalf("expected judge error, got %v", err)
	}
}

func TestRunValidatesInput(t *testing.T) {
	t.Parallel()

	a := newTestAuditor(t, &fakeResolver{t: t}, &fakeAnnotator{}, &fakeRetriever{}, &fakeJudge{})

	if _, err := a.Run(context.Background(), "  ", "vid_1"); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation for empty url, got %v", err)
	}
	if _, err := a.Run(context.Background(), "https://youtu.be/a", ""); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation for empty id, got %v", err)
	}
}

func TestRunPassVerdict(t *testing.T) {
	t.Parallel()

	retriever := &fakeRetriever{
		excerpts: []contractx.RuleExcerpt{{Content: "no health claims", Source: "rules.pdf", Score: 0.9}},
	}
	judge := &fakeJudge{
		verdict: contractx.Verdict{
			ComplianceResults: []contractx.ComplianceIssue{},
			Status:            contractx.StatusPass,
			FinalReport:       "No violations found.",
		},
	}

	a := newTestAuditor(t, &fakeResolver{t: t}, &fakeAnnotator{insights: speechInsights("no claims here")}, retriever, judge)

	st, err := a.Run(context.Background(), "https://youtu.be/abc", "vid_abc")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if st.Transcript != "no claims here" {
		t.Fatalf("unexpected transcript %q", st.Transcript)
	}
	if st.FinalStatus != contractx.StatusPass || st.FinalReport != "No violations found." {
		t.Fatalf("unexpected verdict: status=%q report=%q", st.FinalStatus, st.FinalReport)
	}
	if len(st.Errors) != 0 {
		t.Fatalf("clean run must carry no errors: %v", st.Errors)
	}
	if retriever.calls != 1 || judge.calls != 1 {
		t.Fatalf("unexpected call counts: retriever=%d judge=%d", retriever.calls, judge.calls)
	}
}

func TestRunExtractionFailureSkipsJudgment(t *testing.T) {
	t.Parallel()

	retriever := &fakeRetriever{}
	judge := &fakeJudge{}

	a := newTestAuditor(t, &fakeResolver{t: t, err: errors.New("yt-dlp exit 1")}, &fakeAnnotator{}, retriever, judge)

	st, err := a.Run(context.Background(), "https://youtu.be/abc", "vid_abc")
	if err != nil {
		t.Fatalf("Run must still return a state on stage failure: %v", err)
	}

	if st.FinalStatus != contractx.StatusFail {
		t.Fatalf("expected FAIL, got %q", st.FinalStatus)
	}
	if len(st.Errors) != 1 || !strings.Contains(st.Errors[0], contractx.ErrDownload.Error()) {
		t.Fatalf("unexpected errors: %v", st.Errors)
	}
	if !strings.Contains(st.FinalReport, "no transcript") {
		t.Fatalf("report must explain the skipped judgment: %q", st.FinalReport)
	}
	if retriever.calls != 0 || judge.calls != 0 {
		t.Fatal("retrieval and judgment must not run without a transcript")
	}
}

func newTestAuditor(
	t *testing.T,
	resolver contractx.VideoResolver,
	annotator contractx.VideoAnnotator,
	retriever contractx.RuleRetriever,
	judge contractx.Judge,
) *Auditor {
	t.Helper()
	a, err := New(resolver, fakeStore{}, annotator, retriever, judge, Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}
