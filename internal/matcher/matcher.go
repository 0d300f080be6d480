// internal/matcher/matcher.go

// Package matcher decides whether two journal or publisher names refer
// to the same entity, using an OpenAI-compatible chat completion API.
package matcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"predcheck/internal/common/errors"
	"predcheck/internal/common/logger"
	"predcheck/internal/common/metrics"

	"github.com/sashabaranov/go-openai"
)

// DefaultThreshold is the minimum confidence for a positive match.
const DefaultThreshold = 95

// DefaultTimeout bounds a single completion call.
const DefaultTimeout = 20 * time.Second

// Result is the matcher's verdict on one name pair.
type Result struct {
	IsMatch    bool   `json:"isMatch"`
	Confidence int    `json:"confidence"`
	Reasoning  string `json:"reasoning"`
}

// Matcher compares two names semantically.
type Matcher interface {
	MatchNames(ctx context.Context, a, b string, threshold int) (Result, error)
}

// Client calls a Groq-hosted llama model through its OpenAI-compatible
// endpoint.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
	maxTokens   int
	log         logger.Logger
}

// Config holds the chat completion parameters.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// NewClient creates a matcher client. BaseURL points at any
// OpenAI-compatible completion endpoint. Timeout bounds each call so a
// hung endpoint cannot stall a whole scoring batch.
func NewClient(cfg Config, log logger.Logger) *Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	c := &Client{
		api:         openai.NewClientWithConfig(apiCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		log:         log,
	}
	if c.model == "" {
		c.model = "llama-3.3-70b-versatile"
	}
	if c.temperature == 0 {
		c.temperature = 0.1
	}
	if c.maxTokens == 0 {
		c.maxTokens = 200
	}
	return c
}

const systemPrompt = "You are a precise academic journal name matching expert. Always respond with valid JSON."

func userPrompt(a, b string) string {
	return fmt.Sprintf(`You are an expert in academic journal name matching. Compare these two journal/publisher names and determine if they refer to the same entity.

Name 1: %q
Name 2: %q

Consider:
- Common abbreviations and variations
- Word order differences
- "The", "Journal of", "International" prefixes
- Spelling variations
- Punctuation differences

Respond in JSON format:
{
  "isMatch": true/false,
  "confidence": 0-100,
  "reasoning": "Brief explanation"
}

Be strict: Only return confidence 95+ if you're very certain they're the same entity.`, a, b)
}

// MatchNames asks the model to compare two names. IsMatch is derived
// from the returned confidence against the caller's threshold, not from
// the model's own boolean.
func (c *Client) MatchNames(ctx context.Context, a, b string, threshold int) (Result, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(a, b)},
		},
	})
	if err != nil {
		metrics.MatcherCalls.WithLabelValues("error").Inc()
		return Result{Reasoning: "matcher unavailable"}, errors.NewMatcherUnavailableError(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		metrics.MatcherCalls.WithLabelValues("empty").Inc()
		return Result{Reasoning: "no response from model"}, nil
	}

	var parsed struct {
		IsMatch    bool   `json:"isMatch"`
		Confidence int    `json:"confidence"`
		Reasoning  string `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		metrics.MatcherCalls.WithLabelValues("malformed").Inc()
		c.log.WithError(err).Warn("matcher returned malformed JSON", map[string]interface{}{
			"content": resp.Choices[0].Message.Content,
		})
		return Result{Reasoning: "malformed response from model"}, nil
	}

	result := Result{
		IsMatch:    parsed.Confidence >= threshold,
		Confidence: parsed.Confidence,
		Reasoning:  parsed.Reasoning,
	}
	if result.Reasoning == "" {
		result.Reasoning = "No reasoning provided"
	}
	metrics.MatcherCalls.WithLabelValues("ok").Inc()
	return result, nil
}
