package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"matchbot/internal/perception"
	"matchbot/internal/types"
)

// VisionProvider implements perception.Provider against an OpenAI-compatible
// multimodal chat endpoint.
type VisionProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewVisionProvider creates a provider for the given endpoint and model.
func NewVisionProvider(apiKey, model, baseURL string) *VisionProvider {
	return &VisionProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 60 * time.Second, // vision calls can be slow
		},
	}
}

// chatRequest is the request body for the chat completions API.
type chatRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Messages  []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// chatResponse is the subset of the response we read.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

const classifyPrompt = `You are looking at a screenshot from a mobile dating app.

Classify the screen as exactly one of these labels:
- "profile": a candidate's dating profile (photos, name, bio, prompts)
- "like_confirmation": a dialog confirming a like was sent
- "pass_confirmation": a dialog confirming a pass/skip
- "comment_composer": a text composer for sending a comment with a like
- "error_overlay": an error message, rate-limit notice, or broken screen
- "unknown": anything else

Also locate any of these tappable elements that are visible, with pixel
bounding boxes: like_button, pass_button, comment_button, send_button,
text_input, dismiss_button, photo.

Respond with ONLY a JSON object, no markdown and no explanation:
{"label": "...", "confidence": 0.0-1.0, "elements": [{"role": "...", "box": {"x": 0, "y": 0, "w": 0, "h": 0}}]}`

const extractPrompt = `Transcribe all profile text visible in this dating app screenshot:
name, age, bio, prompts and their answers, interest tags. One item per line,
in top-to-bottom order. Output only the transcribed text, nothing else.`

// ClassifyScreen asks the vision model what screen is showing and where the
// actionable elements are.
func (p *VisionProvider) ClassifyScreen(ctx context.Context, image []byte) (*perception.Classification, error) {
	raw, err := p.call(ctx, classifyPrompt, image, 500)
	if err != nil {
		return nil, err
	}

	var cls perception.Classification
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &cls); err != nil {
		return nil, fmt.Errorf("%w: malformed classification: %v (response was: %.200s)", types.ErrAdapter, err, raw)
	}
	return &cls, nil
}

// ExtractText transcribes visible profile text from the screenshot.
func (p *VisionProvider) ExtractText(ctx context.Context, image []byte) (string, error) {
	raw, err := p.call(ctx, extractPrompt, image, 1000)
	if err != nil {
		return "", err
	}
	return perception.CleanText(raw), nil
}

// call sends one prompt+image request and returns the model's text output.
func (p *VisionProvider) call(ctx context.Context, prompt string, image []byte, maxTokens int) (string, error) {
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(image)

	reqBody := chatRequest{
		Model:     p.model,
		MaxTokens: maxTokens,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: prompt},
					{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
				},
			},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: vision API call failed: %v", types.ErrAdapter, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", types.ErrAdapter, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: vision API returned status %d: %.300s", types.ErrAdapter, resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("%w: failed to parse response: %v", types.ErrAdapter, err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("%w: vision API error: %s - %s", types.ErrAdapter, chatResp.Error.Type, chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%w: vision API returned no choices", types.ErrAdapter)
	}

	return chatResp.Choices[0].Message.Content, nil
}

// extractJSONObject pulls a JSON object out of a model response, handling
// markdown code fences the model may wrap it in.
func extractJSONObject(text string) string {
	re := regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*?\\})\\s*\\n?```")
	if matches := re.FindStringSubmatch(text); len(matches) > 1 {
		return matches[1]
	}

	re = regexp.MustCompile(`(?s)(\{.*\})`)
	if matches := re.FindStringSubmatch(text); len(matches) > 1 {
		return matches[1]
	}

	return text
}
