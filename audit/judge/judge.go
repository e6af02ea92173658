package judgex

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/brandguard-ai/brandguard/audit/contract"
)

// fencedJSON matches the first markdown code block, with or without a
// language tag. Some models wrap the requested JSON object in one.
var fencedJSON = regexp.MustCompile("(?s)```(?:json)?(.*?)```")

type judgeImpl struct {
	runner compose.Runnable[map[string]any, *schema.Message]
}

// New builds a Judge on top of a chat model. The model is invoked once per
// evaluation; there are no retries.
func New(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (contractx.Judge, error) {
	runner, err := compileJudgeGraph(ctx, chatModel, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: compile judge graph: %v", contractx.ErrModelInvoke, err)
	}
	return &judgeImpl{runner: runner}, nil
}

func (j *judgeImpl) Evaluate(ctx context.Context, req contractx.JudgeRequest) (contractx.Verdict, error) {
	if strings.TrimSpace(req.Transcript) == "" {
		return contractx.Verdict{}, fmt.Errorf("%w: transcript is required", contractx.ErrValidation)
	}

	userPayload, err := buildUserMessage(req)
	if err != nil {
		return contractx.Verdict{}, err
	}

	msg, err := j.runner.Invoke(ctx, map[string]any{
		"rules": rulesContext(req.Rules),
		"input": userPayload,
	})
	if err != nil {
		return contractx.Verdict{}, fmt.Errorf("%w: judge invoke: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil {
		return contractx.Verdict{}, fmt.Errorf("%w: empty judge response", contractx.ErrSchemaViolation)
	}

	verdict, err := parseVerdict(msg.Content)
	if err != nil {
		log.Error().Str("raw_output", msg.Content).Msg("judge returned unparseable output")
		return contractx.Verdict{}, err
	}
	return verdict, nil
}

// rulesContext concatenates retrieved excerpts into the prompt rules block.
func rulesContext(rules []contractx.RuleExcerpt) string {
	if len(rules) == 0 {
		return "No specific rules were retrieved. Apply general brand-safety judgment."
	}
	parts := make([]string, 0, len(rules))
	for _, r := range rules {
		parts = append(parts, strings.TrimSpace(r.Content))
	}
	return strings.Join(parts, "\n\n")
}

func buildUserMessage(req contractx.JudgeRequest) (string, error) {
	metadata, err := json.Marshal(req.VideoMetadata)
	if err != nil {
		return "", fmt.Errorf("%w: marshal video metadata: %v", contractx.ErrValidation, err)
	}
	var sb strings.Builder
	sb.WriteString("VIDEO METADATA: ")
	sb.Write(metadata)
	sb.WriteString("\nTRANSCRIPT: ")
	sb.WriteString(req.Transcript)
	sb.WriteString("\nON-SCREEN TEXT (OCR): ")
	sb.WriteString(strings.Join(req.OCRText, " | "))
	return sb.String(), nil
}

// parseVerdict unwraps a possibly fenced JSON payload and validates the
// required fields.
func parseVerdict(content string) (contractx.Verdict, error) {
	payload := extractJSON(content)

	var verdict contractx.Verdict
	if err := json.Unmarshal([]byte(payload), &verdict); err != nil {
		return contractx.Verdict{}, fmt.Errorf("%w: parse verdict JSON: %v", contractx.ErrSchemaViolation, err)
	}

	verdict.Status = strings.ToUpper(strings.TrimSpace(verdict.Status))
	switch verdict.Status {
	case contractx.StatusPass, contractx.StatusFail:
	default:
		return contractx.Verdict{}, fmt.Errorf("%w: unexpected status %q", contractx.ErrSchemaViolation, verdict.Status)
	}

	if verdict.ComplianceResults == nil {
		verdict.ComplianceResults = []contractx.ComplianceIssue{}
	}
	if strings.TrimSpace(verdict.FinalReport) == "" {
		verdict.FinalReport = "No report generated."
	}
	return verdict, nil
}

// extractJSON strips a markdown code fence when present, otherwise returns
// the trimmed content unchanged.
func extractJSON(content string) string {
	if strings.Contains(content, "```") {
		if m := fencedJSON.FindStringSubmatch(content); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return strings.TrimSpace(content)
}
