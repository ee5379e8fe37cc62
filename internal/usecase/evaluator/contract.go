package evaluator

import "context"

// Generator produces completions for LLM-as-judge scoring.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// KV persists evaluations best-effort.
type KV interface {
	KVSet(ctx context.Context, key string, value []byte) error
}
