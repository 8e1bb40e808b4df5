// Package openai is a client for the OpenAI-compatible HTTP API the
// translator relies on: chat completions (text and vision), audio
// translation and speech synthesis. One request per operation, a bearer
// credential on every call, no retries.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Defaults mirroring the models the application was built against.
const (
	DefaultTextModel   = "gpt-3.5-turbo"
	DefaultVisionModel = "gpt-4o-mini"
	DefaultAudioModel  = "whisper-1"
	DefaultSpeechModel = "tts-1"

	speechVoice  = "nova"
	speechFormat = "mp3"

	visionMaxTokens = 500
)

// Config carries the connection parameters for the API.
type Config struct {
	BaseURL     string
	APIKey      string
	TextModel   string
	VisionModel string
	AudioModel  string
	SpeechModel string
}

// Client issues requests against an OpenAI-compatible endpoint.
type Client struct {
	http *http.Client
	cfg  Config
	log  *zap.Logger
}

// New creates a Client. Empty model names in cfg fall back to the
// defaults above.
func New(cfg Config, log *zap.Logger) *Client {
	if cfg.TextModel == "" {
		cfg.TextModel = DefaultTextModel
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = DefaultVisionModel
	}
	if cfg.AudioModel == "" {
		cfg.AudioModel = DefaultAudioModel
	}
	if cfg.SpeechModel == "" {
		cfg.SpeechModel = DefaultSpeechModel
	}
	return &Client{
		http: &http.Client{Timeout: 60 * time.Second},
		cfg:  cfg,
		log:  log,
	}
}

// Message is one chat message. Content is a string for plain text
// messages or a slice of content parts for vision messages.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// contentPart is one element of a multimodal message content array.
type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// do sends body to the given API path and returns the raw response body.
func (c *Client) do(ctx context.Context, path, contentType string, body io.Reader) ([]byte, error) {
	if c.cfg.APIKey == "" {
		return nil, fmt.Errorf("no api key provided")
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.log.Error("api request failed",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return raw, nil
}

// chat posts a chat completion request and returns the first choice's
// message content.
func (c *Client) chat(ctx context.Context, req chatRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	raw, err := c.do(ctx, "/v1/chat/completions", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return out.Choices[0].Message.Content, nil
}

// Complete runs a plain text completion with a system instruction and a
// user message.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	return c.chat(ctx, chatRequest{
		Model: c.cfg.TextModel,
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
}

// CompleteImage runs a vision completion: prompt plus a base64 JPEG.
func (c *Client) CompleteImage(ctx context.Context, prompt, imageB64 string) (string, error) {
	return c.chat(ctx, chatRequest{
		Model: c.cfg.VisionModel,
		Messages: []Message{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: prompt},
					{Type: "image_url", ImageURL: &imageURL{
						URL: "data:image/jpeg;base64," + imageB64,
					}},
				},
			},
		},
		MaxTokens: visionMaxTokens,
	})
}

type audioResponse struct {
	Text string `json:"text"`
}

// TranslateAudio uploads the audio file at path to the audio translation
// endpoint and returns the transcript it produces.
func (c *Client) TranslateAudio(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("copy audio file: %w", err)
	}
	if err := mw.WriteField("model", c.cfg.AudioModel); err != nil {
		return "", fmt.Errorf("write model field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart body: %w", err)
	}

	raw, err := c.do(ctx, "/v1/audio/translations", mw.FormDataContentType(), &buf)
	if err != nil {
		return "", err
	}

	var out audioResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	return out.Text, nil
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

// Speech synthesizes input into audio and returns the raw bytes.
func (c *Client) Speech(ctx context.Context, input string) ([]byte, error) {
	body, err := json.Marshal(speechRequest{
		Model:          c.cfg.SpeechModel,
		Input:          input,
		Voice:          speechVoice,
		ResponseFormat: speechFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, "/v1/audio/speech", "application/json", bytes.NewReader(body))
}
