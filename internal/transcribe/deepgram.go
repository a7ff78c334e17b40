package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultDeepgramURL = "https://api.deepgram.com/v1/listen"

// DeepgramProvider posts prerecorded audio to a Deepgram-compatible
// speech API.
type DeepgramProvider struct {
	apiKey string
	apiURL string
	client *http.Client
}

func NewDeepgramProvider(apiKey, apiURL string) *DeepgramProvider {
	apiURL = strings.TrimSpace(apiURL)
	if apiURL == "" {
		apiURL = defaultDeepgramURL
	}
	return &DeepgramProvider{
		apiKey: strings.TrimSpace(apiKey),
		apiURL: apiURL,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *DeepgramProvider) Transcribe(ctx context.Context, clip []byte, mimeType string) (string, error) {
	if len(clip) == 0 {
		return "", nil
	}

	endpoint, err := url.Parse(p.apiURL)
	if err != nil {
		return "", fmt.Errorf("invalid deepgram url: %w", err)
	}
	q := endpoint.Query()
	q.Set("model", "nova-2")
	q.Set("language", "en-US")
	q.Set("punctuate", "true")
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(clip))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+p.apiKey)
	if mimeType = strings.TrimSpace(mimeType); mimeType == "" {
		mimeType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", mimeType)

	res, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("deepgram status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	return parseDeepgramTranscript(body)
}

func parseDeepgramTranscript(body []byte) (string, error) {
	var out struct {
		Results struct {
			Channels []struct {
				Alternatives []struct {
					Transcript string `json:"transcript"`
				} `json:"alternatives"`
			} `json:"channels"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Results.Channels) == 0 || len(out.Results.Channels[0].Alternatives) == 0 {
		return "", nil
	}
	return strings.TrimSpace(out.Results.Channels[0].Alternatives[0].Transcript), nil
}
