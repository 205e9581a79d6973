// Package insights asks a hosted LLM to invent realistic-looking analytics
// payloads for the custom-integration builder's preview pane.
package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var ErrUpstream = errors.New("completion API unavailable")

type Generator struct {
	APIURL string
	APIKey string
	Model  string
	client *http.Client
}

func NewGenerator(apiURL, apiKey, model string, timeout time.Duration) *Generator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Generator{
		APIURL: apiURL,
		APIKey: apiKey,
		Model:  model,
		client: &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// SamplePayload returns a plausible event payload for the named metric.
// The model's prose is never trusted as-is: the reply is narrowed to its
// first parseable JSON object.
func (g *Generator) SamplePayload(ctx context.Context, metricName, description string) (json.RawMessage, error) {
	prompt := fmt.Sprintf(
		"Invent one realistic sample analytics event payload as a JSON object for a metric named %q. %s Reply with the JSON object only.",
		metricName, description)

	body, err := json.Marshal(chatRequest{
		Model:    g.Model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.APIURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if len(cr.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", ErrUpstream)
	}
	return ExtractJSON(cr.Choices[0].Message.Content), nil
}
