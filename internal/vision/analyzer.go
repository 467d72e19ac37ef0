// Package vision sends capture media to a generative vision model and
// normalizes its reply into a domain.AIAnalysis.
package vision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/yugmi/sense-api/internal/config"
	"go.uber.org/zap"
)

const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderNone      = "none"

	defaultGeminiModel    = "gemini-2.5-flash"
	defaultOpenAIModel    = "gpt-4o"
	defaultAnthropicModel = "claude-sonnet-4-20250514"

	maxResponseTokens = 1000
)

var (
	ErrNoProvider    = errors.New("no AI provider configured")
	ErrNoMedia       = errors.New("no media supplied for analysis")
	ErrEmptyResponse = errors.New("AI provider returned an empty response")
)

// Request is one analysis call. MediaData wins over MediaURL when both are set.
type Request struct {
	MediaURL  string
	MediaData []byte
	MimeType  string
	Prompt    string
}

// Result is the raw provider reply
type Result struct {
	Text     string
	Provider string
	Model    string
}

// Analyzer sends media and a prompt to a vision provider
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (*Result, error)
	Provider() string
}

// LLMAnalyzer implements Analyzer on a langchaingo model
type LLMAnalyzer struct {
	model    llms.Model
	provider string
	name     string
	fetcher  *Fetcher
	logger   *zap.Logger
}

func NewLLMAnalyzer(model llms.Model, provider, modelName string, fetcher *Fetcher, logger *zap.Logger) *LLMAnalyzer {
	return &LLMAnalyzer{
		model:    model,
		provider: provider,
		name:     modelName,
		fetcher:  fetcher,
		logger:   logger,
	}
}

// NewAnalyzer builds the analyzer selected by configuration.
// A provider without an API key yields a Disabled analyzer.
func NewAnalyzer(ctx context.Context, cfg *config.VisionConfig, logger *zap.Logger) (Analyzer, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	fetcher := NewFetcher(cfg.TimeoutDuration())

	var (
		model     llms.Model
		modelName string
		err       error
	)

	switch provider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			logger.Warn("Gemini selected but no API key set, AI analysis disabled")
			return Disabled{}, nil
		}
		modelName = orDefault(cfg.Model, defaultGeminiModel)
		model, err = googleai.New(ctx,
			googleai.WithAPIKey(cfg.GeminiAPIKey),
			googleai.WithDefaultModel(modelName),
		)
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			logger.Warn("OpenAI selected but no API key set, AI analysis disabled")
			return Disabled{}, nil
		}
		modelName = orDefault(cfg.Model, defaultOpenAIModel)
		opts := []openai.Option{
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(modelName),
		}
		if cfg.OpenAIBaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.OpenAIBaseURL))
		}
		model, err = openai.New(opts...)
	case ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			logger.Warn("Anthropic selected but no API key set, AI analysis disabled")
			return Disabled{}, nil
		}
		modelName = orDefault(cfg.Model, defaultAnthropicModel)
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(modelName),
		)
	case ProviderNone, "":
		logger.Info("AI analysis disabled by configuration")
		return Disabled{}, nil
	default:
		return nil, fmt.Errorf("unsupported vision provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", provider, err)
	}

	logger.Info("Vision analyzer initialized",
		zap.String("provider", provider),
		zap.String("model", modelName),
	)
	return NewLLMAnalyzer(model, provider, modelName, fetcher, logger), nil
}

func (a *LLMAnalyzer) Provider() string {
	return a.provider
}

// Analyze sends the prompt and the media inline in a single user message
func (a *LLMAnalyzer) Analyze(ctx context.Context, req Request) (*Result, error) {
	data, mimeType := req.MediaData, req.MimeType
	if len(data) == 0 {
		if req.MediaURL == "" {
			return nil, ErrNoMedia
		}
		var err error
		data, mimeType, err = a.fetcher.Fetch(ctx, req.MediaURL)
		if err != nil {
			return nil, err
		}
		if req.MimeType != "" {
			mimeType = req.MimeType
		}
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	start := time.Now()
	resp, err := a.model.GenerateContent(ctx, []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(req.Prompt),
				llms.BinaryPart(mimeType, data),
			},
		},
	}, llms.WithMaxTokens(maxResponseTokens))
	if err != nil {
		a.logger.Error("AI analysis failed",
			zap.String("provider", a.provider),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%s analysis failed: %w", a.provider, err)
	}
	if resp == nil || len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return nil, ErrEmptyResponse
	}

	a.logger.Debug("AI analysis completed",
		zap.String("provider", a.provider),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Result{Text: resp.Choices[0].Content, Provider: a.provider, Model: a.name}, nil
}

// Disabled rejects every analysis with ErrNoProvider
type Disabled struct{}

func (Disabled) Analyze(context.Context, Request) (*Result, error) {
	return nil, ErrNoProvider
}

func (Disabled) Provider() string {
	return ProviderNone
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
