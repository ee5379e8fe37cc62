package summarizer

import "context"

// Generator produces completions for the map and reduce phases.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// KV persists finished summaries best-effort.
type KV interface {
	KVSet(ctx context.Context, key string, value []byte) error
}
