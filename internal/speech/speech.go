// Package speech talks to the external speech-to-text and text-to-speech
// services over HTTP.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// ErrNotConfigured is returned when the service URL is unset.
var ErrNotConfigured = errors.New("speech service not configured")

// ErrEmptyInput is returned for empty audio or empty text.
var ErrEmptyInput = errors.New("speech input is empty")

const defaultTimeout = 60 * time.Second

type Transcript struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type Audio struct {
	Data        []byte
	ContentType string
}

type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio []byte) (Transcript, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) (Audio, error)
}

// Language maps a voice id onto the language the synthesizer speaks.
func Language(voiceID string) string {
	v := strings.ToLower(strings.TrimSpace(voiceID))
	switch {
	case strings.HasPrefix(v, "fr"):
		return "fr"
	case strings.HasPrefix(v, "es"):
		return "es"
	default:
		return "en"
	}
}

// HTTPTranscriber posts audio as multipart field "audio" and expects
// {"text": ..., "language": ...} back.
type HTTPTranscriber struct {
	url    string
	client *http.Client
}

func NewHTTPTranscriber(url string, timeout time.Duration) *HTTPTranscriber {
	return &HTTPTranscriber{url: strings.TrimSpace(url), client: newClient(timeout)}
}

func (t *HTTPTranscriber) Transcribe(ctx context.Context, filename string, audio []byte) (Transcript, error) {
	if t.url == "" {
		return Transcript{}, ErrNotConfigured
	}
	if len(audio) == 0 {
		return Transcript{}, ErrEmptyInput
	}
	if filename == "" {
		filename = "audio.wav"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("audio", filename)
	if err != nil {
		return Transcript{}, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return Transcript{}, fmt.Errorf("failed to build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return Transcript{}, fmt.Errorf("failed to build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, &body)
	if err != nil {
		return Transcript{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	respBody, _, err := do(t.client, req)
	if err != nil {
		return Transcript{}, err
	}
	var out Transcript
	if err := json.Unmarshal(respBody, &out); err != nil {
		return Transcript{}, fmt.Errorf("failed to decode transcript: %w", err)
	}
	if out.Language == "" {
		out.Language = "en"
	}
	return out, nil
}

// HTTPSynthesizer posts {"text", "language"} and returns the audio body.
type HTTPSynthesizer struct {
	url    string
	client *http.Client
}

func NewHTTPSynthesizer(url string, timeout time.Duration) *HTTPSynthesizer {
	return &HTTPSynthesizer{url: strings.TrimSpace(url), client: newClient(timeout)}
}

type synthesizeRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text, voiceID string) (Audio, error) {
	if s.url == "" {
		return Audio{}, ErrNotConfigured
	}
	if strings.TrimSpace(text) == "" {
		return Audio{}, ErrEmptyInput
	}
	payload, err := json.Marshal(synthesizeRequest{Text: text, Language: Language(voiceID)})
	if err != nil {
		return Audio{}, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return Audio{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	data, contentType, err := do(s.client, req)
	if err != nil {
		return Audio{}, err
	}
	if contentType == "" {
		contentType = "audio/wav"
	}
	return Audio{Data: data, ContentType: contentType}, nil
}

func newClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func do(client *http.Client, req *http.Request) ([]byte, string, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("speech service request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("speech service error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, resp.Header.Get("Content-Type"), nil
}
