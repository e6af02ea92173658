package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/brandguard-ai/brandguard/audit/contract"
	statex "github.com/brandguard-ai/brandguard/audit/state"
)

// JudgeConfig carries the retrieval parameters for the judgment node.
type JudgeConfig struct {
	TopK          int
	FallbackQuery string
}

// Judge retrieves relevant rule excerpts for the extracted content and asks
// the model for a structured verdict. It re-checks its own precondition (a
// non-empty transcript) instead of trusting the upstream status flag; when
// extraction produced nothing, no external call is made.
func Judge(
	ctx context.Context,
	st *statex.AuditState,
	retriever contractx.RuleRetriever,
	judge contractx.Judge,
	cfg JudgeConfig,
) statex.Delta {
	transcript := strings.TrimSpace(st.Transcript)
	if transcript == "" {
		log.Warn().Str("video_id", st.VideoID).Msg("no transcript available, skipping judgment")
		return statex.Delta{
			FinalStatus: contractx.StatusFail,
			FinalReport: "Audit skipped because video processing produced no transcript.",
		}
	}

	query := transcript
	if len(st.OCRText) > 0 {
		query = query + " " + strings.Join(st.OCRText, " ")
	}

	log.Info().Int("query_len", len(query)).Int("top_k", cfg.TopK).Msg("querying rule knowledge base")
	excerpts, err := retriever.Retrieve(ctx, query, cfg.TopK)
	if err != nil {
		return judgmentFailure(fmt.Errorf("%w: %v", contractx.ErrRetrieval, err))
	}

	// No rules matched the content; fetch the general guidelines once.
	if len(excerpts) == 0 {
		log.Info().Str("fallback_query", cfg.FallbackQuery).Msg("no specific rules found, fetching general guidelines")
		excerpts, err = retriever.Retrieve(ctx, cfg.FallbackQuery, cfg.TopK)
		if err != nil {
			return judgmentFailure(fmt.Errorf("%w: %v", contractx.ErrRetrieval, err))
		}
	}
	log.Info().Int("excerpts", len(excerpts)).Msg("rule retrieval complete")

	verdict, err := judge.Evaluate(ctx, contractx.JudgeRequest{
		Transcript:    st.Transcript,
		OCRText:       st.OCRText,
		VideoMetadata: st.VideoMetadata,
		Rules:         excerpts,
	})
	if err != nil {
		return judgmentFailure(err)
	}

	return statex.Delta{
		ComplianceResults: verdict.ComplianceResults,
		FinalStatus:       verdict.Status,
		FinalReport:       verdict.FinalReport,
	}
}

func judgmentFailure(err error) statex.Delta {
	log.Error().Err(err).Msg("judgment failed")
	return statex.Delta{
		FinalStatus: contractx.StatusFail,
		Errors:      []string{err.Error()},
	}
}
