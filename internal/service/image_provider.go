package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"time"

	"github.com/go-resty/resty/v2"
	_ "golang.org/x/image/webp"
)

// ImageEmbedderConfig holds configuration for both image embedding
// strategies. The remote strategy is used when EndpointURL is set (or
// Provider forces it); otherwise the local pipeline runs in-process.
type ImageEmbedderConfig struct {
	Provider       string
	Model          string
	EndpointURL    string
	Dimensions     int
	RequestTimeout time.Duration
}

// NewImageEmbedder selects the image embedding strategy from configuration.
// Both strategies produce vectors of cfg.Dimensions for cfg.Model.
func NewImageEmbedder(cfg *ImageEmbedderConfig) ImageEmbedder {
	if cfg.Provider == "local" || cfg.EndpointURL == "" {
		return NewLocalImageEmbedder(cfg)
	}
	return NewRemoteImageEmbedder(cfg)
}

// RemoteImageEmbedder posts the image URL to an external inference service.
type RemoteImageEmbedder struct {
	client   *resty.Client
	endpoint string
	model    string
}

// NewRemoteImageEmbedder creates the remote image embedding client.
func NewRemoteImageEmbedder(cfg *ImageEmbedderConfig) *RemoteImageEmbedder {
	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	if cfg.RequestTimeout > 0 {
		client.SetTimeout(cfg.RequestTimeout)
	}
	return &RemoteImageEmbedder{
		client:   client,
		endpoint: cfg.EndpointURL,
		model:    cfg.Model,
	}
}

// Model returns the model identifier stored alongside each vector.
func (e *RemoteImageEmbedder) Model() string {
	return e.model
}

type imageEmbeddingRequest struct {
	ImageURL string `json:"image_url"`
}

type imageEmbeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// EmbedImage requests a vector for the image at url. Error classification
// matches EmbedText: transport failures are ErrProviderUnavailable, non-2xx
// responses are ProviderError.
func (e *RemoteImageEmbedder) EmbedImage(ctx context.Context, url string) ([]float32, error) {
	var result imageEmbeddingResponse
	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(imageEmbeddingRequest{ImageURL: url}).
		SetResult(&result).
		Post(e.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	if resp.IsError() {
		return nil, &ProviderError{
			Provider: "image-embedding",
			Status:   resp.StatusCode(),
			Body:     string(resp.Body()),
		}
	}

	if len(result.Embedding) == 0 {
		return nil, &ProviderError{
			Provider: "image-embedding",
			Status:   resp.StatusCode(),
			Body:     "no embedding in response",
		}
	}

	return result.Embedding, nil
}

// LocalImageEmbedder is the in-process fallback used when no remote
// endpoint is configured. It downloads the image, decodes it
// (jpeg/png/gif/webp), extracts color and contrast features over a fixed
// patch grid, mean-pools them into the configured dimension and
// L2-normalizes the result. Far cruder than a learned model, but
// deterministic, dependency-free at runtime, and dimension-compatible with
// the remote strategy.
type LocalImageEmbedder struct {
	client     *resty.Client
	model      string
	dimensions int
}

const localPatchGrid = 16

// NewLocalImageEmbedder creates the local image embedding pipeline.
func NewLocalImageEmbedder(cfg *ImageEmbedderConfig) *LocalImageEmbedder {
	client := resty.New()
	if cfg.RequestTimeout > 0 {
		client.SetTimeout(cfg.RequestTimeout)
	}
	return &LocalImageEmbedder{
		client:     client,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

// Model returns the model identifier stored alongside each vector.
func (e *LocalImageEmbedder) Model() string {
	return e.model
}

// EmbedImage downloads and embeds the image at url.
func (e *LocalImageEmbedder) EmbedImage(ctx context.Context, url string) ([]float32, error) {
	resp, err := e.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if resp.IsError() {
		return nil, &ProviderError{
			Provider: "image-download",
			Status:   resp.StatusCode(),
			Body:     fmt.Sprintf("fetching %s", url),
		}
	}

	img, _, err := image.Decode(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return e.extract(img), nil
}

// extract computes patch features over a localPatchGrid x localPatchGrid
// grid, folds them into the output dimension by mean pooling, and
// L2-normalizes.
func (e *LocalImageEmbedder) extract(img image.Image) []float32 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width == 0 || height == 0 {
		return make([]float32, e.dimensions)
	}

	sums := make([]float64, e.dimensions)
	counts := make([]float64, e.dimensions)

	feature := 0
	for gy := 0; gy < localPatchGrid; gy++ {
		for gx := 0; gx < localPatchGrid; gx++ {
			r, g, b, contrast := patchStats(img, bounds, gx, gy, width, height)
			for _, f := range [4]float64{r, g, b, contrast} {
				idx := feature % e.dimensions
				sums[idx] += f
				counts[idx]++
				feature++
			}
		}
	}

	vec := make([]float32, e.dimensions)
	var norm float64
	for i := range vec {
		if counts[i] > 0 {
			v := sums[i] / counts[i]
			vec[i] = float32(v)
			norm += v * v
		}
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec
}

// patchStats returns mean RGB (0..1) and a luma contrast measure for one
// grid cell, sampled on a coarse sub-grid to stay cheap on large images.
func patchStats(img image.Image, bounds image.Rectangle, gx, gy, width, height int) (float64, float64, float64, float64) {
	x0 := bounds.Min.X + gx*width/localPatchGrid
	x1 := bounds.Min.X + (gx+1)*width/localPatchGrid
	y0 := bounds.Min.Y + gy*height/localPatchGrid
	y1 := bounds.Min.Y + (gy+1)*height/localPatchGrid
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}

	stepX := (x1 - x0 + 3) / 4
	stepY := (y1 - y0 + 3) / 4

	var sumR, sumG, sumB, sumL, sumL2, n float64
	for y := y0; y < y1; y += stepY {
		for x := x0; x < x1; x += stepX {
			r, g, b, _ := img.At(x, y).RGBA()
			fr := float64(r) / 65535
			fg := float64(g) / 65535
			fb := float64(b) / 65535
			luma := 0.299*fr + 0.587*fg + 0.114*fb
			sumR += fr
			sumG += fg
			sumB += fb
			sumL += luma
			sumL2 += luma * luma
			n++
		}
	}
	if n == 0 {
		return 0, 0, 0, 0
	}
	meanL := sumL / n
	variance := sumL2/n - meanL*meanL
	if variance < 0 {
		variance = 0
	}
	return sumR / n, sumG / n, sumB / n, math.Sqrt(variance)
}
