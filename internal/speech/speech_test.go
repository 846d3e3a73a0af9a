package speech

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestLanguage(t *testing.T) {
	cases := map[string]string{
		"fr-FR":   "fr",
		"es":      "es",
		"ES_mx":   "es",
		"en-US":   "en",
		"":        "en",
		"de-DE":   "en",
		" french": "fr",
	}
	for in, want := range cases {
		if got := Language(in); got != want {
			t.Errorf("Language(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestTranscribeUploadsAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("audio")
		if err != nil {
			t.Errorf("form file: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		b, _ := io.ReadAll(file)
		if string(b) != "RIFF" || header.Filename != "clip.wav" {
			t.Errorf("unexpected upload %q %q", b, header.Filename)
		}
		w.Write([]byte(`{"text":"show me my tasks"}`))
	}))
	defer srv.Close()

	got, err := NewHTTPTranscriber(srv.URL, time.Second).Transcribe(context.Background(), "clip.wav", []byte("RIFF"))
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if got.Text != "show me my tasks" || got.Language != "en" {
		t.Fatalf("unexpected transcript %+v", got)
	}
}

func TestTranscribeErrors(t *testing.T) {
	if _, err := NewHTTPTranscriber("", 0).Transcribe(context.Background(), "a.wav", []byte("x")); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := NewHTTPTranscriber("http://127.0.0.1:1", 0).Transcribe(context.Background(), "a.wav", nil); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()
	_, err := NewHTTPTranscriber(srv.URL, time.Second).Transcribe(context.Background(), "a.wav", []byte("x"))
	if err == nil || !strings.Contains(err.Error(), "model not loaded") {
		t.Fatalf("expected service error, got %v", err)
	}
}

func TestSynthesizeReturnsAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req synthesizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Text != "Bonjour" || req.Language != "fr" {
			t.Errorf("unexpected request %+v", req)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3"))
	}))
	defer srv.Close()

	audio, err := NewHTTPSynthesizer(srv.URL, time.Second).Synthesize(context.Background(), "Bonjour", "fr-FR")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if string(audio.Data) != "ID3" || audio.ContentType != "audio/mpeg" {
		t.Fatalf("unexpected audio %+v", audio)
	}
}

func TestSynthesizeErrors(t *testing.T) {
	if _, err := NewHTTPSynthesizer("", 0).Synthesize(context.Background(), "hi", "en"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := NewHTTPSynthesizer("http://127.0.0.1:1", 0).Synthesize(context.Background(), "  ", "en"); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}
