package aiprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"newsloop/internal/capability"
	"newsloop/internal/domain/entity"
	"newsloop/internal/resilience/circuitbreaker"
	"newsloop/internal/resilience/retry"
)

// OpenAIProviderConfig configures the GPT-backed capability adapters.
type OpenAIProviderConfig struct {
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// DefaultOpenAIProviderConfig returns the default model/token/timeout
// settings for the capability adapters.
func DefaultOpenAIProviderConfig() OpenAIProviderConfig {
	return OpenAIProviderConfig{
		Model:     openai.GPT4oMini,
		MaxTokens: 2048,
		Timeout:   60 * time.Second,
	}
}

// OpenAIProvider implements every AI-backed pipeline capability against a
// single GPT client, mirroring AnthropicProvider's one-breaker-per-capability
// structure so either provider can be selected interchangeably by
// PipelineConfig.AIProvider.
type OpenAIProvider struct {
	client *openai.Client
	config OpenAIProviderConfig

	scoreBreaker     *circuitbreaker.CircuitBreaker
	synthesisBreaker *circuitbreaker.CircuitBreaker
	selectBreaker    *circuitbreaker.CircuitBreaker
	renderBreaker    *circuitbreaker.CircuitBreaker
	searchBreaker    *circuitbreaker.CircuitBreaker
}

// NewOpenAIProvider constructs the GPT-backed capability set.
func NewOpenAIProvider(apiKey string, config OpenAIProviderConfig) *OpenAIProvider {
	return &OpenAIProvider{
		client:           openai.NewClient(apiKey),
		config:           config,
		scoreBreaker:     circuitbreaker.New(circuitbreaker.ScoringConfig()),
		synthesisBreaker: circuitbreaker.New(circuitbreaker.SynthesisConfig()),
		selectBreaker:    circuitbreaker.New(circuitbreaker.ComponentSelectConfig()),
		renderBreaker:    circuitbreaker.New(circuitbreaker.ComponentRenderConfig()),
		searchBreaker:    circuitbreaker.New(circuitbreaker.SearchConfig()),
	}
}

func (p *OpenAIProvider) call(ctx context.Context, capabilityName string, breaker *circuitbreaker.CircuitBreaker, retryConfig retry.Config, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	var result string
	retryErr := retry.WithBackoff(ctx, retryConfig, func() error {
		cbResult, err := breaker.Execute(func() (interface{}, error) {
			return p.doCall(ctx, prompt)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("openai capability circuit breaker open, request rejected",
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
		return "", fmt.Errorf("%s: openai call failed after retries: %w", capabilityName, retryErr)
	}
	return result, nil
}

func (p *OpenAIProvider) doCall(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     p.config.Model,
		MaxTokens: p.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai api returned empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

// Score implements capability.Scorer. OpenAI's json_object response format
// requires a single object rather than a bare array, so the items are
// wrapped and unwrapped under a "results" key here only.
func (p *OpenAIProvider) Score(ctx context.Context, items []capability.ScoreInput) ([]capability.ScoreOutput, error) {
	payload, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal score items: %w", err)
	}
	prompt := fmt.Sprintf(scorePromptTemplate+`
Wrap the array in an object: {"results": [...]}.`, string(payload))

	raw, err := p.call(ctx, "scoring", p.scoreBreaker, retry.ScoringConfig(), prompt)
	if err != nil {
		return nil, err
	}
	var wrapper struct {
		Results []capability.ScoreOutput `json:"results"`
	}
	if err := unmarshalResponse(raw, &wrapper); err != nil {
		return nil, err
	}
	if len(wrapper.Results) != len(items) {
		return nil, fmt.Errorf("scoring: provider returned %d scores for %d items", len(wrapper.Results), len(items))
	}
	for i := range wrapper.Results {
		wrapper.Results[i].Score = min(max(wrapper.Results[i].Score, 0), 1000)
	}
	return wrapper.Results, nil
}

// Synthesize implements capability.Synthesizer.
func (p *OpenAIProvider) Synthesize(ctx context.Context, sources []capability.SourcePackage) (*capability.SynthesisOutput, error) {
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
func (p *OpenAIProvider) SelectComponents(ctx context.Context, in capability.ComponentSelectInput) (*capability.ComponentSelectOutput, error) {
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
func (p *OpenAIProvider) RenderComponent(ctx context.Context, in capability.ComponentRenderInput) (any, error) {
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
func (p *OpenAIProvider) Search(ctx context.Context, req capability.SearchRequest) (map[entity.ComponentKind]capability.ComponentBundle, error) {
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

var _ capability.Scorer = (*OpenAIProvider)(nil)
var _ capability.Synthesizer = (*OpenAIProvider)(nil)
var _ capability.ComponentSelector = (*OpenAIProvider)(nil)
var _ capability.ComponentRenderer = (*OpenAIProvider)(nil)
var _ capability.Searcher = (*OpenAIProvider)(nil)
