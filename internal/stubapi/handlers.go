// Package stubapi serves a deterministic stand-in for the remote
// OpenAI-compatible API, used for offline development and by the client
// tests. Responses carry the real wire shapes with canned content.
package stubapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Fixed responses the stub hands out.
const (
	// Transcript is returned by the audio translation endpoint.
	Transcript = "hello from the recording"
	// SpeechPrefix prefixes the fake audio bytes of the speech endpoint.
	SpeechPrefix = "ID3stub-audio:"
)

type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type chatResponse struct {
	Choices []choice `json:"choices"`
}

type choice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
}

// lastUserText extracts the text of the last user message. Vision
// messages carry a content array; the text part wins.
func lastUserText(messages []message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != "user" {
			continue
		}
		switch content := messages[i].Content.(type) {
		case string:
			return content
		case []any:
			for _, p := range content {
				part, ok := p.(map[string]any)
				if !ok {
					continue
				}
				if part["type"] == "text" {
					if text, ok := part["text"].(string); ok {
						return text
					}
				}
			}
		}
	}
	return ""
}

// ChatCompletions answers every completion with a marked echo of the
// last user message, so tests can assert exactly what was submitted.
func ChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	var resp chatResponse
	resp.Choices = make([]choice, 1)
	resp.Choices[0].Message.Role = "assistant"
	resp.Choices[0].Message.Content = "stub translation of: " + lastUserText(req.Messages)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// AudioTranslations accepts a multipart audio upload and returns the
// fixed Transcript.
func AudioTranslations(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		http.Error(w, "expected multipart form", http.StatusBadRequest)
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	if _, _, err := r.FormFile("file"); err != nil {
		http.Error(w, "missing audio file", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"text": Transcript})
}

type speechRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
	Voice string `json:"voice"`
}

// Speech returns fake audio bytes derived from the requested input.
func Speech(w http.ResponseWriter, r *http.Request) {
	var req speechRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Input == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	fmt.Fprintf(w, "%s%s", SpeechPrefix, req.Input)
}
