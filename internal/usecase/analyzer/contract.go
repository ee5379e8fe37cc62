package analyzer

import "context"

// Generator produces completions for classification and query rewriting.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
