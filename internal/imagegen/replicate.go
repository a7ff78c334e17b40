package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/AketfONG/Memory-Garden-sub001/internal/reliability"
)

const (
	defaultReplicateURL   = "https://api.replicate.com/v1"
	defaultReplicateModel = "google/imagen-4-fast"
)

// ReplicateGenerator drives the Replicate prediction lifecycle: create,
// poll until terminal, then fetch the output image and inline it as a
// data URL.
type ReplicateGenerator struct {
	apiKey       string
	apiURL       string
	model        string
	pollInterval time.Duration
	client       *http.Client
}

func NewReplicateGenerator(apiKey, apiURL, model string, pollInterval time.Duration) *ReplicateGenerator {
	apiURL = strings.TrimRight(strings.TrimSpace(apiURL), "/")
	if apiURL == "" {
		apiURL = defaultReplicateURL
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = defaultReplicateModel
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &ReplicateGenerator{
		apiKey:       strings.TrimSpace(apiKey),
		apiURL:       apiURL,
		model:        model,
		pollInterval: pollInterval,
		client:       &http.Client{Timeout: 120 * time.Second},
	}
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

func (g *ReplicateGenerator) Generate(ctx context.Context, req PromptRequest) (Image, error) {
	prompt := BuildPrompt(req)
	if prompt == "" {
		return Image{}, fmt.Errorf("prompt is required for image generation")
	}

	pred, err := g.createPrediction(ctx, prompt)
	if err != nil {
		return Image{}, err
	}

	pred, err = g.awaitPrediction(ctx, pred)
	if err != nil {
		return Image{}, err
	}

	imageURL := firstOutputURL(pred.Output)
	if imageURL == "" {
		return Image{}, fmt.Errorf("no image URL in prediction output")
	}

	data, err := g.fetchImage(ctx, imageURL)
	if err != nil {
		return Image{}, err
	}

	return Image{
		DataURL:  "data:image/png;base64," + base64.StdEncoding.EncodeToString(data),
		Prompt:   prompt,
		Provider: g.model,
	}, nil
}

func (g *ReplicateGenerator) createPrediction(ctx context.Context, prompt string) (prediction, error) {
	payload, err := json.Marshal(map[string]any{
		"input": map[string]any{"prompt": prompt},
	})
	if err != nil {
		return prediction{}, fmt.Errorf("marshal prediction: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s/predictions", g.apiURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return prediction{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+g.apiKey)

	res, err := g.client.Do(req)
	if err != nil {
		return prediction{}, fmt.Errorf("create prediction: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return prediction{}, fmt.Errorf("read prediction: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return prediction{}, fmt.Errorf("create prediction status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var pred prediction
	if err := json.Unmarshal(body, &pred); err != nil {
		return prediction{}, fmt.Errorf("decode prediction: %w", err)
	}
	return pred, nil
}

func (g *ReplicateGenerator) awaitPrediction(ctx context.Context, pred prediction) (prediction, error) {
	for attempt := 0; pred.Status == "starting" || pred.Status == "processing"; attempt++ {
		wait := reliability.ExponentialBackoff(attempt, g.pollInterval, 8*g.pollInterval)
		select {
		case <-ctx.Done():
			return prediction{}, ctx.Err()
		case <-time.After(wait):
		}

		next, retryable, err := g.pollPrediction(ctx, pred.URLs.Get)
		if err != nil {
			if retryable {
				continue
			}
			return prediction{}, err
		}
		pred = next
	}

	if pred.Status != "succeeded" {
		if pred.Error != "" {
			return prediction{}, fmt.Errorf("prediction %s: %s", pred.Status, pred.Error)
		}
		return prediction{}, fmt.Errorf("prediction did not succeed: %s", pred.Status)
	}
	return pred, nil
}

func (g *ReplicateGenerator) pollPrediction(ctx context.Context, url string) (prediction, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return prediction{}, false, fmt.Errorf("create poll request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+g.apiKey)

	res, err := g.client.Do(req)
	if err != nil {
		return prediction{}, false, fmt.Errorf("poll prediction: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return prediction{}, false, fmt.Errorf("read poll response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		retryable := reliability.IsRetryableHTTPStatus(res.StatusCode)
		return prediction{}, retryable, fmt.Errorf("poll status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var pred prediction
	if err := json.Unmarshal(body, &pred); err != nil {
		return prediction{}, false, fmt.Errorf("decode poll response: %w", err)
	}
	return pred, false, nil
}

func (g *ReplicateGenerator) fetchImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create image request: %w", err)
	}

	res, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image status %d", res.StatusCode)
	}
	return io.ReadAll(io.LimitReader(res.Body, 16<<20))
}

// firstOutputURL handles both output shapes the API emits: a bare URL
// string or an array of URLs.
func firstOutputURL(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return strings.TrimSpace(single)
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 {
		return strings.TrimSpace(many[0])
	}
	return ""
}
