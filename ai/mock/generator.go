package mock

import (
	"context"
	"sync"

	"github.com/mlgkav/email-agent/ai"
)

// Generator is an ai.Generator for tests. By default it echoes a fixed
// response; set GenerateFunc to script behavior per prompt.
type Generator struct {
	mu           sync.Mutex
	Response     string
	GenerateFunc func(ctx context.Context, prompt string) (string, error)
	prompts      []string
}

var _ ai.Generator = (*Generator)(nil)

// NewGenerator creates a mock generator returning response for every prompt.
func NewGenerator(response string) *Generator {
	return &Generator{Response: response}
}

// Generate records the prompt and returns the scripted response.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	fn := g.GenerateFunc
	response := g.Response
	g.mu.Unlock()

	if fn != nil {
		return fn(ctx, prompt)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return response, nil
}

// Prompts returns a copy of every prompt passed to Generate.
func (g *Generator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.prompts))
	copy(out, g.prompts)
	return out
}

// LastPrompt returns the most recent prompt, or "" if none.
func (g *Generator) LastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}
