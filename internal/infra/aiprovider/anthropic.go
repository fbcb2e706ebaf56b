package aiprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sony/gobreaker"

	"newsloop/internal/capability"
	"newsloop/internal/domain/entity"
	"newsloop/internal/resilience/circuitbreaker"
	"newsloop/internal/resilience/retry"
)

// AnthropicConfig configures the Claude-backed capability adapters. It
// mirrors the teacher's ClaudeConfig shape (model, max tokens, timeout)
// without the summarizer's character-limit/language fields, which have no
// meaning for structured capability calls.
type AnthropicConfig struct {
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// DefaultAnthropicConfig returns the default model/token/timeout settings.
func DefaultAnthropicConfig() AnthropicConfig {
	return AnthropicConfig{
		Model:     string(anthropic.ModelClaudeSonnet4_5_20250929),
		MaxTokens: 2048,
		Timeout:   60 * time.Second,
	}
}

// AnthropicProvider implements every AI-backed pipeline capability
// (scoring, synthesis, component selection, component rendering, search)
// against a single Claude client, one circuit breaker and retry config per
// capability so a degraded capability never throttles the others.
type AnthropicProvider struct {
	client anthropic.Client
	config AnthropicConfig

	scoreBreaker     *circuitbreaker.CircuitBreaker
	synthesisBreaker *circuitbreaker.CircuitBreaker
	selectBreaker    *circuitbreaker.CircuitBreaker
	renderBreaker    *circuitbreaker.CircuitBreaker
	searchBreaker    *circuitbreaker.CircuitBreaker
}

// NewAnthropicProvider constructs the Claude-backed capability set.
func NewAnthropicProvider(apiKey string, config AnthropicConfig) *AnthropicProvider {
	return &AnthropicProvider{
		client:           anthropic.NewClient(option.WithAPIKey(apiKey)),
		config:           config,
		scoreBreaker:     circuitbreaker.New(circuitbreaker.ScoringConfig()),
		synthesisBreaker: circuitbreaker.New(circuitbreaker.SynthesisConfig()),
		selectBreaker:    circuitbreaker.New(circuitbreaker.ComponentSelectConfig()),
		renderBreaker:    circuitbreaker.New(circuitbreaker.ComponentRenderConfig()),
		searchBreaker:    circuitbreaker.New(circuitbreaker.SearchConfig()),
	}
}

// call wraps one Claude round trip with the named breaker and retry config,
// logging and unwrapping circuit-breaker-open the same way the teacher's
// Claude.Summarize does.
func (p *AnthropicProvider) call(ctx context.Context, capabilityName string, breaker *circuitbreaker.CircuitBreaker, retryConfig retry.Config, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	var result string
	retryErr := retry.WithBackoff(ctx, retryConfig, func() error {
		cbResult, err := breaker.Execute(func() (interface{}, error) {
			return p.doCall(ctx, prompt)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("anthropic capability circuit breaker open, request rejected",
					slog.String("capability", capabilityName),
					slog.String("state", breaker.State().String()))
				return fmt.Errorf("%s capability unavailable: circuit breaker open", capabilityName)
			}
			return err
		}
		result = cbResult.(string)
		return nil
	})
	if retryErr != nil {
		return "", fmt.Errorf("%s: anthropic call failed after retries: %w", capabilityName, retryErr)
	}
	return result, nil
}

func (p *AnthropicProvider) doCall(ctx context.Context, prompt string) (string, error) {
	message, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.config.Model),
		MaxTokens: int64(p.config.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}
	if len(message.Content) == 0 {
		return "", fmt.Errorf("anthropic api returned empty response")
	}
	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		return "", fmt.Errorf("anthropic api returned unexpected response type")
	}
	return textBlock.Text, nil
}

// Score implements capability.Scorer.
func (p *AnthropicProvider) Score(ctx context.Context, items []capability.ScoreInput) ([]capability.ScoreOutput, error) {
	payload, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal score items: %w", err)
	}
	prompt := fmt.Sprintf(scorePromptTemplate, string(payload))

	raw, err := p.call(ctx, "scoring", p.scoreBreaker, retry.ScoringConfig(), prompt)
	if err != nil {
		return nil, err
	}
	var out []capability.ScoreOutput
	if err := unmarshalResponse(raw, &out); err != nil {
		return nil, err
	}
	if len(out) != len(items) {
		return nil, fmt.Errorf("scoring: provider returned %d scores for %d items", len(out), len(items))
	}
	for i := range out {
		out[i].Score = min(max(out[i].Score, 0), 1000)
	}
	return out, nil
}

// Synthesize implements capability.Synthesizer.
func (p *AnthropicProvider) Synthesize(ctx context.Context, sources []capability.SourcePackage) (*capability.SynthesisOutput, error) {
	payload, err := json.Marshal(sources)
	if err != nil {
		return nil, fmt.Errorf("marshal sources: %w", err)
	}
	prompt := fmt.Sprintf(synthesisPromptTemplate, string(payload))

	raw, err := p.call(ctx, "synthesis", p.synthesisBreaker, retry.SynthesisConfig(), prompt)
	if err != nil {
		return nil, err
	}
	var out capability.SynthesisOutput
	if err := unmarshalResponse(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SelectComponents implements capability.ComponentSelector.
func (p *AnthropicProvider) SelectComponents(ctx context.Context, in capability.ComponentSelectInput) (*capability.ComponentSelectOutput, error) {
	prompt := fmt.Sprintf(componentSelectPromptTemplate, in.Title, in.Body)

	raw, err := p.call(ctx, "component-select", p.selectBreaker, retry.ComponentConfig(), prompt)
	if err != nil {
		return nil, err
	}
	var out capability.ComponentSelectOutput
	if err := unmarshalResponse(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RenderComponent implements capability.ComponentRenderer.
func (p *AnthropicProvider) RenderComponent(ctx context.Context, in capability.ComponentRenderInput) (any, error) {
	bundle, err := json.Marshal(in.Bundle)
	if err != nil {
		return nil, fmt.Errorf("marshal component bundle: %w", err)
	}
	prompt := fmt.Sprintf(componentRenderPromptTemplate, in.Kind, in.ArticleTitle, in.ArticleBody, string(bundle))

	raw, err := p.call(ctx, "component-render", p.renderBreaker, retry.ComponentConfig(), prompt)
	if err != nil {
		return nil, err
	}
	return parseComponentPayload(in.Kind, raw)
}

// Search implements capability.Searcher.
func (p *AnthropicProvider) Search(ctx context.Context, req capability.SearchRequest) (map[entity.ComponentKind]capability.ComponentBundle, error) {
	components, err := marshalComponents(req.Components)
	if err != nil {
		return nil, fmt.Errorf("marshal requested components: %w", err)
	}
	prompt := fmt.Sprintf(searchPromptTemplate, req.Title, req.BodyExcerpt, components)

	raw, err := p.call(ctx, "search", p.searchBreaker, retry.SearchConfig(), prompt)
	if err != nil {
		return nil, err
	}
	var out map[entity.ComponentKind]capability.ComponentBundle
	if err := unmarshalResponse(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

var _ capability.Scorer = (*AnthropicProvider)(nil)
var _ capability.Synthesizer = (*AnthropicProvider)(nil)
var _ capability.ComponentSelector = (*AnthropicProvider)(nil)
var _ capability.ComponentRenderer = (*AnthropicProvider)(nil)
var _ capability.Searcher = (*AnthropicProvider)(nil)
