package auditor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/brandguard-ai/brandguard/audit/contract"
	statex "github.com/brandguard-ai/brandguard/audit/state"
)

const (
	defaultRetrievalTopK = 3
	defaultFallbackQuery = "General Brand Safety Guidelines Compliance Rules"
)

// Config carries the orchestration knobs that used to hide in environment
// lookups. It is passed explicitly at construction time.
type Config struct {
	RetrievalTopK int
	FallbackQuery string
}

// Auditor runs the fixed two-node audit pipeline: extraction then judgment.
type Auditor struct {
	resolver  contractx.VideoResolver
	store     contractx.ObjectStore
	annotator contractx.VideoAnnotator
	retriever contractx.RuleRetriever
	judge     contractx.Judge

	graphRunner compose.Runnable[*statex.AuditState, *statex.AuditState]

	cfg Config
}

func New(
	resolver contractx.VideoResolver,
	store contractx.ObjectStore,
	annotator contractx.VideoAnnotator,
	retriever contractx.RuleRetriever,
	judge contractx.Judge,
	cfg Config,
) (*Auditor, error) {
	if resolver == nil {
		return nil, errors.New("video resolver is required")
	}
	if store == nil {
		return nil, errors.New("object store is required")
	}
	if annotator == nil {
		return nil, errors.New("video annotator is required")
	}
	if retriever == nil {
		return nil, errors.New("rule retriever is required")
	}
	if judge == nil {
		return nil, errors.New("judge is required")
	}

	if cfg.RetrievalTopK <= 0 {
		cfg.RetrievalTopK = defaultRetrievalTopK
	}
	if strings.TrimSpace(cfg.FallbackQuery) == "" {
		cfg.FallbackQuery = defaultFallbackQuery
	}

	a := &Auditor{
		resolver:  resolver,
		store:     store,
		annotator: annotator,
		retriever: retriever,
		judge:     judge,
		cfg:       cfg,
	}

	graphRunner, err := a.compileAuditGraph(context.Background())
	if err != nil {
		return nil, err
	}
	a.graphRunner = graphRunner

	return a, nil
}

// Run audits a single video end to end and returns the final state. The
// pipeline itself converts stage failures into state entries, so an error
// here means the request never got off the ground.
func (a *Auditor) Run(ctx context.Context, videoURL, videoID string) (*statex.AuditState, error) {
	url := strings.TrimSpace(videoURL)
	if url == "" {
		return nil, fmt.Errorf("%w: video url is required", contractx.ErrValidation)
	}
	id := strings.TrimSpace(videoID)
	if id == "" {
		return nil, fmt.Errorf("%w: video id is required", contractx.ErrValidation)
	}

	st, err := a.graphRunner.Invoke(ctx, statex.New(url, id))
	if err != nil {
		return nil, err
	}
	return st, nil
}
