package tts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestSynthesizeSendsSpeechRequest(t *testing.T) {
	var captured speechRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-speech" {
			t.Errorf("missing auth header, got %q", got)
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte("audio-bytes"))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "sk-speech", BaseURL: server.URL, Voice: "nova", Format: "mp3"})
	audio, err := client.Synthesize(context.Background(), "bonjour", "")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio) != "audio-bytes" {
		t.Fatalf("unexpected audio payload %q", audio)
	}
	if captured.Input != "bonjour" || captured.Voice != "nova" || captured.ResponseFormat != "mp3" {
		t.Fatalf("unexpected request %+v", captured)
	}
}

func TestSynthesizeVoiceOverride(t *testing.T) {
	var captured speechRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte("x"))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "sk-speech", BaseURL: server.URL, Voice: "alloy"})
	if _, err := client.Synthesize(context.Background(), "hola", "shimmer"); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if captured.Voice != "shimmer" {
		t.Fatalf("expected voice override, got %q", captured.Voice)
	}
}

func TestSynthesizeRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("audio"))
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "sk-speech", BaseURL: server.URL},
		WithSleeper(func(time.Duration) {}),
	)
	if _, err := client.Synthesize(context.Background(), "word", ""); err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestSynthesizeNoRetryOnBadRequest(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "invalid voice", http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "sk-speech", BaseURL: server.URL},
		WithSleeper(func(time.Duration) {}),
	)
	if _, err := client.Synthesize(context.Background(), "word", ""); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestSynthesizeValidation(t *testing.T) {
	client := NewClient(Config{APIKey: "sk-speech"})
	if _, err := client.Synthesize(context.Background(), "   ", ""); err == nil {
		t.Fatal("expected error for empty text")
	}
	noKey := NewClient(Config{})
	if _, err := noKey.Synthesize(context.Background(), "word", ""); err == nil {
		t.Fatal("expected error for missing api key")
	}
}
