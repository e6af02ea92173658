package auditor

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	nodex "github.com/brandguard-ai/brandguard/audit/nodes"
	statex "github.com/brandguard-ai/brandguard/audit/state"
)

// compileAuditGraph wires the fixed linear pipeline: extract -> judge. Nodes
// return full deltas; the lambdas fold them into the shared state through the
// explicit reducer, so list fields accumulate and scalars follow the last
// writer.
func (a *Auditor) compileAuditGraph(
	ctx context.Context,
) (compose.Runnable[*statex.AuditState, *statex.AuditState], error) {
	graph := compose.NewGraph[*statex.AuditState, *statex.AuditState]()

	if err := graph.AddLambdaNode("extract",
		compose.InvokableLambda(func(ctx context.Context, st *statex.AuditState) (*statex.AuditState, error) {
			st.Apply(nodex.Extract(ctx, st, a.resolver, a.store, a.annotator))
			return st, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node extract: %w", err)
	}

	if err := graph.AddLambdaNode("judge",
		compose.InvokableLambda(func(ctx context.Context, st *statex.AuditState) (*statex.AuditState, error) {
			st.Apply(nodex.Judge(ctx, st, a.retriever, a.judge, nodex.JudgeConfig{
				TopK:          a.cfg.RetrievalTopK,
				FallbackQuery: a.cfg.FallbackQuery,
			}))
			return st, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node judge: %w", err)
	}

	edges := [][2]string{
		{compose.START, "extract"},
		{"extract", "judge"},
		{"judge", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("auditor.audit_pipeline"))
	if err != nil {
		return nil, fmt.Errorf("compile audit graph: %w", err)
	}
	return runner, nil
}
