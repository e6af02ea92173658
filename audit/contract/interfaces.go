package contract

import "context"

// VideoResolver fetches a local copy of a remote video.
type VideoResolver interface {
	Download(ctx context.Context, url string) (string, error)
}

// ObjectStore stages local files into durable storage addressable by URI.
type ObjectStore interface {
	Upload(ctx context.Context, localPath, objectName string) (string, error)
	Exists(ctx context.Context, objectName string) (bool, error)
}

// VideoAnnotator runs multi-feature annotation against a staged video.
type VideoAnnotator interface {
	Annotate(ctx context.Context, inputURI string) (*Insights, error)
}

// RuleRetriever returns the top-k rule excerpts relevant to a free-text query.
type RuleRetriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]RuleExcerpt, error)
}

// Judge performs a single model evaluation of extracted content.
type Judge interface {
	Evaluate(ctx context.Context, req JudgeRequest) (Verdict, error)
}
