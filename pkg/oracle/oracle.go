// Package oracle is the optional second opinion on a schedule: a natural
// language model reads the document against the written rules and reports
// what it sees. Its output is advisory only; the programmatic validator is
// always authoritative, and any oracle failure must degrade to a note.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// DefaultModel is the generative model used when none is configured.
const DefaultModel = "gemini-1.5-flash"

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// Report is the oracle's parsed verdict.
type Report struct {
	IsValid    bool     `json:"is_valid"`
	Violations []string `json:"violations"`
}

// Checker is the narrow interface the HTTP layer depends on.
type Checker interface {
	Check(ctx context.Context, scheduleJSON []byte, rulesText string) (*Report, error)
}

// Gemini checks schedules through the Generative Language REST API.
type Gemini struct {
	APIKey  string
	Model   string
	BaseURL string
	Client  *http.Client
}

// NewGemini builds a checker with a bounded request timeout.
func NewGemini(apiKey, model string) *Gemini {
	if model == "" {
		model = DefaultModel
	}
	return &Gemini{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: defaultBaseURL,
		Client:  &http.Client{Timeout: 20 * time.Second},
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"response_mime_type"`
	Temperature      float64 `json:"temperature"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Check sends the schedule and rules text to the model and parses its JSON
// verdict. Errors cover the whole pipeline: transport, status, and
// unparseable model output.
func (g *Gemini) Check(ctx context.Context, scheduleJSON []byte, rulesText string) (*Report, error) {
	if g.APIKey == "" {
		return nil, errors.New("oracle API key not configured")
	}

	prompt := fmt.Sprintf(`You are a schedule validation expert. Analyze the provided schedule against the given rules.

Respond ONLY with valid JSON in this exact format:
{"is_valid": true/false, "violations": ["specific violation with employee name and details", ...]}

RULES TO VALIDATE:
%s

SCHEDULE DATA TO ANALYZE:
%s

For each violation found, specify which rule was violated, which employee(s), in which month(s), and what the violation is exactly. If no violations are found, return {"is_valid": true, "violations": []}.`, rulesText, scheduleJSON)

	req := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			Temperature:      0.1,
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", g.BaseURL, g.Model, g.APIKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("oracle request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oracle returned status %d", resp.StatusCode)
	}

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("oracle response unreadable: %w", err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return nil, errors.New("oracle returned no candidates")
	}

	var report Report
	if err := json.Unmarshal([]byte(gr.Candidates[0].Content.Parts[0].Text), &report); err != nil {
		return nil, fmt.Errorf("oracle verdict unparseable: %w", err)
	}
	if report.Violations == nil {
		report.Violations = []string{}
	}
	return &report, nil
}
