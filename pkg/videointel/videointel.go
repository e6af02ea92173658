package videointelx

import (
	"context"
	"fmt"
	"strings"
	"time"

	videointelligence "cloud.google.com/go/videointelligence/apiv1"
	"cloud.google.com/go/videointelligence/apiv1/videointelligencepb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"

	contractx "github.com/brandguard-ai/brandguard/audit/contract"
)

type Config struct {
	LanguageCode    string        `envconfig:"LANGUAGE_CODE" split_words:"true" default:"en-US"`
	SpeakerCount    int           `envconfig:"SPEAKER_COUNT" split_words:"true" default:"2"`
	Timeout         time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"600s"`
	PollInterval    time.Duration `envconfig:"POLL_INTERVAL" split_words:"true" default:"10s"`
	CredentialsFile string        `envconfig:"CREDENTIALS_FILE" split_words:"true"`
}

// Client wraps the Video Intelligence API behind a bounded-wait Annotate call.
type Client struct {
	client *videointelligence.Client
	cfg    Config
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 600 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if strings.TrimSpace(cfg.LanguageCode) == "" {
		cfg.LanguageCode = "en-US"
	}

	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := videointelligence.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("videointel: create client: %w", err)
	}
	return &Client{client: client, cfg: cfg}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// Annotate requests speech transcription, OCR, label, and shot-change
// annotation for a staged video and waits for the operation to finish.
// The wait is bounded by Config.Timeout with a fixed poll interval.
func (c *Client) Annotate(ctx context.Context, inputURI string) (*contractx.Insights, error) {
	req := &videointelligencepb.AnnotateVideoRequest{
		InputUri: inputURI,
		Features: []videointelligencepb.Feature{
			videointelligencepb.Feature_SPEECH_TRANSCRIPTION,
			videointelligencepb.Feature_TEXT_DETECTION,
			videointelligencepb.Feature_LABEL_DETECTION,
			videointelligencepb.Feature_SHOT_CHANGE_DETECTION,
		},
		VideoContext: &videointelligencepb.VideoContext{
			SpeechTranscriptionConfig: &videointelligencepb.SpeechTranscriptionConfig{
				LanguageCode:               c.cfg.LanguageCode,
				EnableAutomaticPunctuation: true,
				EnableSpeakerDiarization:   true,
				DiarizationSpeakerCount:    int32(c.cfg.SpeakerCount),
			},
		},
	}

	op, err := c.client.AnnotateVideo(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("videointel: start annotation for %q: %w", inputURI, err)
	}

	resp, err := c.waitForResult(ctx, op)
	if err != nil {
		return nil, err
	}
	return flattenResponse(resp), nil
}

// annotationOperation is the pollable slice of the long-running operation
// handle, narrowed so the wait loop can be exercised without the provider.
type annotationOperation interface {
	Poll(ctx context.Context, opts ...gax.CallOption) (*videointelligencepb.AnnotateVideoResponse, error)
	Done() bool
}

func (c *Client) waitForResult(
	ctx context.Context,
	op annotationOperation,
) (*videointelligencepb.AnnotateVideoResponse, error) {
	deadline := time.NewTimer(c.cfg.Timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		resp, err := op.Poll(ctx)
		if err != nil {
			return nil, fmt.Errorf("videointel: poll annotation operation: %w", err)
		}
		if op.Done() {
			return resp, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("videointel: annotation aborted: %w", ctx.Err())
		case <-deadline.C:
			return nil, fmt.Errorf("videointel: annotation did not complete within %s", c.cfg.Timeout)
		case <-ticker.C:
		}
	}
}

// flattenResponse reduces the provider response for the first (and only)
// processed video into Insights. Label annotations stay grouped in response
// order; duration estimation depends on the first group.
func flattenResponse(resp *videointelligencepb.AnnotateVideoResponse) *contractx.Insights {
	insights := &contractx.Insights{}
	if resp == nil || len(resp.GetAnnotationResults()) == 0 {
		return insights
	}
	result := resp.GetAnnotationResults()[0]

	for _, st := range result.GetSpeechTranscriptions() {
		seg := contractx.SpeechSegment{}
		for _, alt := range st.GetAlternatives() {
			seg.Alternatives = append(seg.Alternatives, contractx.SpeechAlternative{
				Transcript: alt.GetTranscript(),
				Confidence: alt.GetConfidence(),
			})
		}
		insights.SpeechSegments = append(insights.SpeechSegments, seg)
	}

	for _, ta := range result.GetTextAnnotations() {
		insights.TextAnnotations = append(insights.TextAnnotations, ta.GetText())
	}

	for _, label := range result.GetSegmentLabelAnnotations() {
		annotation := contractx.LabelAnnotation{
			Label: label.GetEntity().GetDescription(),
		}
		for _, seg := range label.GetSegments() {
			annotation.Segments = append(annotation.Segments, contractx.LabelSegment{
				StartSeconds: seg.GetSegment().GetStartTimeOffset().AsDuration().Seconds(),
				EndSeconds:   seg.GetSegment().GetEndTimeOffset().AsDuration().Seconds(),
			})
		}
		insights.LabelAnnotations = append(insights.LabelAnnotations, annotation)
	}

	return insights
}
