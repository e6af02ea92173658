package videointelx

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/videointelligence/apiv1/videointelligencepb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/protobuf/types/known/durationpb"
)

func TestFlattenResponse(t *testing.T) {
	t.Parallel()

	resp := &videointelligencepb.AnnotateVideoResponse{
		AnnotationResults: []*videointelligencepb.VideoAnnotationResults{
			{
				SpeechTranscriptions: []*videointelligencepb.SpeechTranscription{
					{
						Alternatives: []*videointelligencepb.SpeechRecognitionAlternative{
							{Transcript: "try our new drink", Confidence: 0.92},
							{Transcript: "try our new drank", Confidence: 0.41},
						},
					},
				},
				TextAnnotations: []*videointelligencepb.TextAnnotation{
					{Text: "LIMITED OFFER"},
					{Text: "BUY NOW"},
				},
				SegmentLabelAnnotations: []*videointelligencepb.LabelAnnotation{
					{
						Entity: &videointelligencepb.Entity{Description: "video"},
						Segments: []*videointelligencepb.LabelSegment{
							{
								Segment: &videointelligencepb.VideoSegment{
									StartTimeOffset: durationpb.New(0),
									EndTimeOffset:   durationpb.New(100 * time.Second),
								},
							},
						},
					},
					{
						Entity: &videointelligencepb.Entity{Description: "beverage"},
						Segments: []*videointelligencepb.LabelSegment{
							{
								Segment: &videointelligencepb.VideoSegment{
									StartTimeOffset: durationpb.New(1500 * time.Millisecond),
									EndTimeOffset:   durationpb.New(30 * time.Second),
								},
							},
						},
					},
				},
			},
		},
	}

	insights := flattenResponse(resp)

	if len(insights.SpeechSegments) != 1 {
		t.Fatalf("expected 1 speech segment, got %d", len(insights.SpeechSegments))
	}
	alts := insights.SpeechSegments[0].Alternatives
	if len(alts) != 2 || alts[0].Transcript != "try our new drink" || alts[0].Confidence != 0.92 {
		t.Fatalf("unexpected alternatives: %+v", alts)
	}

	if len(insights.TextAnnotations) != 2 || insights.TextAnnotations[1] != "BUY NOW" {
		t.Fatalf("unexpected text annotations: %v", insights.TextAnnotations)
	}

	if len(insights.LabelAnnotations) != 2 {
		t.Fatalf("label annotations must stay grouped per label, got %d", len(insights.LabelAnnotations))
	}
	first := insights.LabelAnnotations[0]
	if first.Label != "video" || len(first.Segments) != 1 || first.Segments[0].EndSeconds != 100 {
		t.Fatalf("unexpected first annotation: %+v", first)
	}
	second := insights.LabelAnnotations[1]
	if second.Label != "beverage" || second.Segments[0].StartSeconds != 1.5 || second.Segments[0].EndSeconds != 30 {
		t.Fatalf("unexpected second annotation: %+v", second)
	}
}

func TestFlattenResponseEmpty(t *testing.T) {
	t.Parallel()

	for _, resp := range []*videointelligencepb.AnnotateVideoResponse{
		nil,
		{},
	} {
		insights := flattenResponse(resp)
		if insights == nil {
			t.Fatal("flattenResponse must never return nil")
		}
		if len(insights.SpeechSegments) != 0 || len(insights.TextAnnotations) != 0 || len(insights.LabelAnnotations) != 0 {
			t.Fatalf("empty response must flatten to empty insights: %+v", insights)
		}
	}
}

type fakeOperation struct {
	doneAfter int
	pollErr   error
	resp      *videointelligencepb.AnnotateVideoResponse

	polls int
}

func (f *fakeOperation) Poll(ctx context.Context, opts ...gax.CallOption) (*videointelligencepb.AnnotateVideoResponse, error) {
	f.polls++
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	if f.Done() {
		return f.resp, nil
	}
	return nil, nil
}

func (f *fakeOperation) Done() bool {
	return f.doneAfter > 0 && f.polls >= f.doneAfter
}

func waitClient(timeout, pollInterval time.Duration) *Client {
	return &Client{cfg: Config{Timeout: timeout, PollInterval: pollInterval}}
}

func TestWaitForResultReturnsWhenDone(t *testing.T) {
	t.Parallel()

	want := &videointelligencepb.AnnotateVideoResponse{}
	op := &fakeOperation{doneAfter: 3, resp: want}
	c := waitClient(time.Second, time.Millisecond)

	resp, err := c.waitForResult(context.Background(), op)
	if err != nil {
		t.Fatalf("waitForResult: %v", err)
	}
	if resp != want {
		t.Fatalf("unexpected response: %v", resp)
	}
	if op.polls != 3 {
		t.Fatalf("expected 3 polls, got %d", op.polls)
	}
}

func TestWaitForResultTimesOut(t *testing.T) {
	t.Parallel()

	op := &fakeOperation{}
	c := waitClient(30*time.Millisecond, 5*time.Millisecond)

	_, err := c.waitForResult(context.Background(), op)
	if err == nil || !strings.Contains(err.Error(), "did not complete within") {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if op.polls == 0 {
		t.Fatal("operation must be polled before the deadline expires")
	}
}

func TestWaitForResultContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	op := &fakeOperation{}
	c := waitClient(time.Second, 5*time.Millisecond)

	_, err := c.waitForResult(ctx, op)
	if err == nil || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWaitForResultPollError(t *testing.T) {
	t.Parallel()

	op := &fakeOperation{pollErr: errors.New("rpc unavailable")}
	c := waitClient(time.Second, time.Millisecond)

	_, err := c.waitForResult(context.Background(), op)
	if err == nil || !strings.Contains(err.Error(), "rpc unavailable") {
		t.Fatalf("expected poll error, got %v", err)
	}
	if op.polls != 1 {
		t.Fatalf("poll errors must not be retried, got %d polls", op.polls)
	}
}
