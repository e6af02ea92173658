package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"

	auditorx "github.com/brandguard-ai/brandguard/audit/auditor"
	contractx "github.com/brandguard-ai/brandguard/audit/contract"
	judgex "github.com/brandguard-ai/brandguard/audit/judge"
	llmx "github.com/brandguard-ai/brandguard/audit/llm"
	promptx "github.com/brandguard-ai/brandguard/audit/prompt"
	configx "github.com/brandguard-ai/brandguard/pkg/config"
	gcsx "github.com/brandguard-ai/brandguard/pkg/gcs"
	openrouterx "github.com/brandguard-ai/brandguard/pkg/openrouter"
	videointelx "github.com/brandguard-ai/brandguard/pkg/videointel"
	ytdlpx "github.com/brandguard-ai/brandguard/pkg/ytdlp"
	localstorex "github.com/brandguard-ai/brandguard/rules/localstore"
	vertexsearchx "github.com/brandguard-ai/brandguard/rules/vertexsearch"
)

type appConfig struct {
	Retriever      string `envconfig:"RETRIEVER" split_words:"true" default:"vertex"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL" split_words:"true" default:"text-embedding-3-small"`
	RetrievalTopK  int    `envconfig:"RETRIEVAL_TOP_K" split_words:"true" default:"3"`
}

// joinClosers folds per-client close functions into one, run in reverse
// construction order. Close errors are collected, not short-circuited.
func joinClosers(closers []func() error) func() error {
	return func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}

// buildAuditor assembles the full audit pipeline from environment
// configuration. The returned closer releases every client the build
// acquired: object store, annotator, and retriever.
func buildAuditor(ctx context.Context) (*auditorx.Auditor, func() error, error) {
	appCfg := configx.MustNew[appConfig]("")

	var closers []func() error
	fail := func(err error) (*auditorx.Auditor, func() error, error) {
		_ = joinClosers(closers)()
		return nil, nil, err
	}

	resolver := ytdlpx.New(*configx.MustNew[ytdlpx.Config]("YTDLP"))

	store, err := gcsx.New(ctx, *configx.MustNew[gcsx.Config]("GCS"))
	if err != nil {
		return fail(fmt.Errorf("build object store: %w", err))
	}
	closers = append(closers, store.Close)

	annotator, err := videointelx.New(ctx, *configx.MustNew[videointelx.Config]("VIDEO_INTEL"))
	if err != nil {
		return fail(fmt.Errorf("build video annotator: %w", err))
	}
	closers = append(closers, annotator.Close)

	retriever, retrieverClose, err := buildRetriever(appCfg)
	if err != nil {
		return fail(err)
	}
	if retrieverClose != nil {
		closers = append(closers, retrieverClose)
	}

	judge, err := buildJudge(ctx)
	if err != nil {
		return fail(err)
	}

	auditor, err := auditorx.New(resolver, store, annotator, retriever, judge, auditorx.Config{
		RetrievalTopK: appCfg.RetrievalTopK,
	})
	if err != nil {
		return fail(fmt.Errorf("build auditor: %w", err))
	}

	return auditor, joinClosers(closers), nil
}

func buildRetriever(appCfg *appConfig) (contractx.RuleRetriever, func() error, error) {
	switch strings.ToLower(strings.TrimSpace(appCfg.Retriever)) {
	case "vertex":
		client, err := vertexsearchx.New(*configx.MustNew[vertexsearchx.Config]("VERTEX_SEARCH"))
		if err != nil {
			return nil, nil, fmt.Errorf("build vertex retriever: %w", err)
		}
		return client, nil, nil
	case "local":
		store, err := buildLocalStore(appCfg)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown retriever %q (want vertex or local)", appCfg.Retriever)
	}
}

func buildLocalStore(appCfg *appConfig) (*localstorex.Store, error) {
	llmCfg := configx.MustNew[llmx.Config]("LLM")
	client, err := openRouterClient(llmCfg)
	if err != nil {
		return nil, err
	}

	embedder := localstorex.NewOpenAIEmbedder(client, appCfg.EmbeddingModel)
	store, err := localstorex.New(*configx.MustNew[localstorex.Config]("RULES"), embedder)
	if err != nil {
		return nil, fmt.Errorf("build local rule store: %w", err)
	}
	return store, nil
}

func openRouterClient(llmCfg *llmx.Config) (*openaisdk.Client, error) {
	client, err := openrouterx.NewClient(llmCfg.OpenRouter())
	if err != nil {
		return nil, fmt.Errorf("build embeddings client: %w", err)
	}
	return client, nil
}

func buildJudge(ctx context.Context) (contractx.Judge, error) {
	llmCfg := configx.MustNew[llmx.Config]("LLM")
	if err := llmCfg.Validate(); err != nil {
		return nil, err
	}

	modelCfg := llmCfg.OpenRouter()
	chatModel, err := modelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("build chat model: %w", err)
	}

	judge, err := judgex.New(ctx, chatModel, promptx.Auditor())
	if err != nil {
		return nil, fmt.Errorf("build judge: %w", err)
	}
	return judge, nil
}
