package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"sommelier-backend/models"

	"github.com/google/generative-ai-go/genai"
)

const (
	generationModel = "gemini-2.0-flash"
	lookupAPI       = "https://generativelanguage.googleapis.com/v1beta/models/" + generationModel + ":generateContent"
)

var (
	ErrEmptyWindow  = errors.New("conversation window is empty")
	ErrNoCandidates = errors.New("API returned no candidates")
)

// Gemini answers chat queries against the Gemini API. The direct path uses
// the genai client with the conversation window as chat history; the lookup
// path calls the REST API directly because the SDK does not expose the
// google_search tool block.
type Gemini struct {
	client *genai.Client
	apiKey string
	httpc  *http.Client
}

// NewGemini creates a Gemini provider
func NewGemini(client *genai.Client, apiKey string) *Gemini {
	return &Gemini{
		client: client,
		apiKey: apiKey,
		httpc:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Complete sends the conversation window to the model and returns the answer
// text. System entries become the system instruction; the final entry must be
// the pending user query.
func (g *Gemini) Complete(ctx context.Context, window models.ConversationWindow) (string, error) {
	if len(window) == 0 {
		return "", ErrEmptyWindow
	}

	last := window[len(window)-1]
	if last.Role != models.RoleUser {
		return "", fmt.Errorf("conversation window must end with a user entry, got %q", last.Role)
	}

	var systemParts []genai.Part
	var history []*genai.Content

	for _, msg := range window[:len(window)-1] {
		switch msg.Role {
		case models.RoleSystem:
			systemParts = append(systemParts, genai.Text(msg.Content))
		case models.RoleAssistant:
			history = append(history, &genai.Content{
				Role:  "model",
				Parts: []genai.Part{genai.Text(msg.Content)},
			})
		default:
			history = append(history, &genai.Content{
				Role:  "user",
				Parts: []genai.Part{genai.Text(msg.Content)},
			})
		}
	}

	model := g.client.GenerativeModel(generationModel)
	if len(systemParts) > 0 {
		model.SystemInstruction = &genai.Content{Parts: systemParts}
	}

	cs := model.StartChat()
	cs.History = history

	resp, err := cs.SendMessage(ctx, genai.Text(last.Content))
	if err != nil {
		return "", fmt.Errorf("generation request failed: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrNoCandidates
	}

	var builder strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			builder.WriteString(string(text))
		}
	}

	return builder.String(), nil
}

// Lookup answers a time-sensitive query with search grounding. Results are
// requested in markdown, one per block, separated by a triple dash.
func (g *Gemini) Lookup(ctx context.Context, query, preferences string) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY not set")
	}

	input := fmt.Sprintf(`For the query: "%s".
%s

Return results clearly formatted in markdown with store names, brief descriptions, prices, availability, and links.
Separate each result with a triple dash (---).
Provide no raw HTML.`, query, preferences)

	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{"text": input},
				},
			},
		},
		"tools": []map[string]interface{}{
			{"google_search": map[string]interface{}{}},
		},
		"systemInstruction": map[string]interface{}{
			"parts": []map[string]interface{}{
				{"text": "Output must be markdown or plain text without raw HTML."},
			},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", lookupAPI, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		log.Printf("Lookup API error: Status %d, Body: %s", resp.StatusCode, string(bodyBytes))
		return "", fmt.Errorf("API error: %d", resp.StatusCode)
	}

	var apiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason,omitempty"`
		} `json:"candidates"`
		PromptFeedback struct {
			BlockReason string `json:"blockReason,omitempty"`
		} `json:"promptFeedback,omitempty"`
	}

	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		log.Printf("Failed to decode lookup response. Body: %s", string(bodyBytes))
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if apiResp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("API blocked prompt: %s", apiResp.PromptFeedback.BlockReason)
	}

	if len(apiResp.Candidates) == 0 {
		return "", ErrNoCandidates
	}

	var builder strings.Builder
	for i, candidate := range apiResp.Candidates {
		if candidate.FinishReason != "" && candidate.FinishReason != "STOP" {
			log.Printf("Warning: Candidate %d finished with reason: %s", i, candidate.FinishReason)
		}
		for _, part := range candidate.Content.Parts {
			if part.Text == "" {
				continue
			}
			builder.WriteString(part.Text)
		}
	}

	return builder.String(), nil
}
