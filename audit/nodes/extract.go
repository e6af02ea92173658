package nodes

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/brandguard-ai/brandguard/audit/contract"
	statex "github.com/brandguard-ai/brandguard/audit/state"
)

var (
	nonASCIIRuns   = regexp.MustCompile(`[^\x00-\x7F]+`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

// Extract resolves the source video, stages it to durable storage, requests
// multi-feature annotation, and normalizes the result into transcript, OCR
// lines, and metadata. Any failure turns into an error entry plus
// FinalStatus=FAIL; the pipeline keeps running so the caller always gets a
// complete state back.
func Extract(
	ctx context.Context,
	st *statex.AuditState,
	resolver contractx.VideoResolver,
	store contractx.ObjectStore,
	annotator contractx.VideoAnnotator,
) statex.Delta {
	log.Info().Str("video_url", st.VideoURL).Str("video_id", st.VideoID).Msg("extraction started")

	localPath, err := resolver.Download(ctx, st.VideoURL)
	if err != nil {
		return extractionFailure(fmt.Errorf("%w: %v", contractx.ErrDownload, err))
	}
	defer func() {
		if removeErr := os.Remove(localPath); removeErr != nil {
			log.Warn().Err(removeErr).Str("path", localPath).Msg("could not remove local video copy")
		}
	}()

	objectName := fmt.Sprintf("videos/%s.mp4", st.VideoID)
	uri, err := store.Upload(ctx, localPath, objectName)
	if err != nil {
		return extractionFailure(fmt.Errorf("%w: %v", contractx.ErrUpload, err))
	}
	log.Info().Str("uri", uri).Msg("video staged for annotation")

	insights, err := annotator.Annotate(ctx, uri)
	if err != nil {
		return extractionFailure(fmt.Errorf("%w: %v", contractx.ErrAnnotate, err))
	}

	transcript := flattenTranscript(insights)
	ocrLines := collectOCR(insights)
	if transcript == "" && len(ocrLines) > 0 {
		log.Info().Msg("no speech detected, falling back to OCR text for transcript")
		transcript = cleanOCRText(strings.Join(ocrLines, " "))
	}

	metadata := map[string]any{
		"duration":   estimateDuration(insights),
		"platform":   "youtube",
		"source_uri": uri,
	}

	log.Info().
		Int("transcript_len", len(transcript)).
		Int("ocr_lines", len(ocrLines)).
		Msg("extraction complete")

	return statex.Delta{
		Transcript:    statex.String(transcript),
		OCRText:       statex.Strings(ocrLines),
		VideoMetadata: metadata,
	}
}

func extractionFailure(err error) statex.Delta {
	log.Error().Err(err).Msg("extraction failed")
	return statex.Delta{
		Transcript:  statex.String(""),
		OCRText:     statex.Strings([]string{}),
		FinalStatus: contractx.StatusFail,
		Errors:      []string{err.Error()},
	}
}

// flattenTranscript joins the best alternative of every speech segment.
func flattenTranscript(insights *contractx.Insights) string {
	if insights == nil {
		return ""
	}
	parts := make([]string, 0, len(insights.SpeechSegments))
	for _, seg := range insights.SpeechSegments {
		if len(seg.Alternatives) == 0 {
			continue
		}
		parts = append(parts, seg.Alternatives[0].Transcript)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func collectOCR(insights *contractx.Insights) []string {
	lines := []string{}
	if insights == nil {
		return lines
	}
	return append(lines, insights.TextAnnotations...)
}

// cleanOCRText strips non-ASCII runs (misread logos and graphics come out as
// garbage) and collapses whitespace.
func cleanOCRText(raw string) string {
	cleaned := nonASCIIRuns.ReplaceAllString(raw, " ")
	cleaned = whitespaceRuns.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// estimateDuration approximates video length in seconds from the first label
// annotation's last segment end offset.
func estimateDuration(insights *contractx.Insights) float64 {
	if insights == nil || len(insights.LabelAnnotations) == 0 {
		return 0
	}
	segments := insights.LabelAnnotations[0].Segments
	if len(segments) == 0 {
		return 0
	}
	return segments[len(segments)-1].EndSeconds
}
