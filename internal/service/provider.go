package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// TextEmbedder converts text into a fixed-length vector. Implementations
// are selected at startup; the rest of the pipeline only sees the
// interface.
type TextEmbedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// ImageEmbedder converts an image reference into a fixed-length vector.
type ImageEmbedder interface {
	EmbedImage(ctx context.Context, url string) ([]float32, error)
	Model() string
}

// TextEmbedderConfig holds configuration for the OpenAI-compatible text
// embedding client.
type TextEmbedderConfig struct {
	Model          string
	APIKey         string
	BaseURL        string
	Dimensions     int
	MaxInputChars  int
	RequestTimeout time.Duration
}

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	client        *resty.Client
	model         string
	maxInputChars int
}

const defaultMaxInputChars = 4000

// NewOpenAIEmbedder creates a text embedding client.
func NewOpenAIEmbedder(cfg *TextEmbedderConfig) *OpenAIEmbedder {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	if cfg.RequestTimeout > 0 {
		client.SetTimeout(cfg.RequestTimeout)
	}

	maxChars := cfg.MaxInputChars
	if maxChars <= 0 {
		maxChars = defaultMaxInputChars
	}

	return &OpenAIEmbedder{
		client:        client,
		model:         cfg.Model,
		maxInputChars: maxChars,
	}
}

// Model returns the model identifier stored alongside each vector.
func (e *OpenAIEmbedder) Model() string {
	return e.model
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// EmbedText truncates the input to the provider's limit and requests an
// embedding. Transport failures (including timeouts) map to
// ErrProviderUnavailable; non-2xx responses map to ProviderError.
func (e *OpenAIEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	input := truncateRunes(text, e.maxInputChars)

	var result embeddingResponse
	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(embeddingRequest{Model: e.model, Input: []string{input}}).
		SetResult(&result).
		Post("/embeddings")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	if resp.IsError() {
		return nil, &ProviderError{
			Provider: "text-embedding",
			Status:   resp.StatusCode(),
			Body:     string(resp.Body()),
		}
	}

	if len(result.Data) == 0 {
		return nil, &ProviderError{
			Provider: "text-embedding",
			Status:   resp.StatusCode(),
			Body:     "no embedding in response",
		}
	}

	return result.Data[0].Embedding, nil
}

// truncateRunes caps s at n runes without splitting a multi-byte character.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
