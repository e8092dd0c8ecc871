// Package gemini implements llm.Client using the Gemini API's SSE
// streaming endpoint.
package gemini

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cortex-ai/cortex/llm"
	"github.com/cortex-ai/cortex/model"
)

const systemInstruction = "You are a helpful AI assistant for a web development project dashboard. " +
	"You are an expert in Node.js, Vite, Vue, ShadCN, and vanilla JS. Be concise and professional."

// Client calls the Gemini streamGenerateContent API.
type Client struct {
	apiKey string
	model  string
	client *http.Client
}

// New creates a Gemini client. Model defaults to "gemini-2.5-flash" if empty.
func New(apiKey, modelName string) *Client {
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	return &Client{
		apiKey: apiKey,
		model:  modelName,
		client: http.DefaultClient,
	}
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

// StreamMessage opens an SSE completion stream seeded with the prior
// finalized messages plus the new user message.
func (c *Client) StreamMessage(ctx context.Context, history []*model.ChatMessage, message string) (llm.Stream, error) {
	var contents []content
	for _, m := range history {
		if m.IsTyping || m.Text == "" {
			continue
		}
		role := "user"
		if m.Sender == model.SenderAI {
			role = "model"
		}
		contents = append(contents, content{Role: role, Parts: []part{{Text: m.Text}}})
	}
	contents = append(contents, content{Role: "user", Parts: []part{{Text: message}}})

	body := map[string]any{
		"system_instruction": content{Parts: []part{{Text: systemInstruction}}},
		"contents":           contents,
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf(
		"https://generativelanguage.googleapis.com/v1beta/models/%s:streamGenerateContent?alt=sse",
		c.model,
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling gemini: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("gemini API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return &stream{body: resp.Body, scanner: bufio.NewScanner(resp.Body)}, nil
}

// stream reads "data: {...}" SSE lines off the response body.
type stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

func (s *stream) Recv() (string, error) {
	for s.scanner.Scan() {
		line := s.scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			return "", io.EOF
		}

		var chunk struct {
			Candidates []struct {
				Content struct {
					Parts []part `json:"parts"`
				} `json:"content"`
			} `json:"candidates"`
		}
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return "", fmt.Errorf("parsing stream chunk: %w", err)
		}
		if len(chunk.Candidates) == 0 {
			continue
		}
		var text strings.Builder
		for _, p := range chunk.Candidates[0].Content.Parts {
			text.WriteString(p.Text)
		}
		return text.String(), nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (s *stream) Close() error {
	return s.body.Close()
}

var _ llm.Client = (*Client)(nil)
