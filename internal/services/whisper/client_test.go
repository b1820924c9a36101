package whisper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"subgen/internal/services"
)

func writeTempWAV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.wav")
	if err := os.WriteFile(path, []byte("RIFFfakewav"), 0o644); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	return path
}

func TestPingTreatsAnyResponseAsReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	defer srv.Close()

	client := New(srv.URL, time.Minute, time.Second, nil)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping should accept 405 as reachable: %v", err)
	}
}

func TestPingUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	client := New(srv.URL, time.Minute, time.Second, nil)
	err := client.Ping(context.Background())
	if !errors.Is(err, services.ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
	if !strings.Contains(err.Error(), "WHISPER_SERVER_URL") {
		t.Fatalf("unreachable message should mention the env override: %v", err)
	}
}

func TestTranscribePostsMultipartForm(t *testing.T) {
	const transcript = "1\n00:00:00,000 --> 00:00:02,000\nhello world\n"
	var gotFormat, gotTranslate, gotFilename string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		gotFormat = r.FormValue("response_format")
		gotTranslate = r.FormValue("translate")
		if _, header, err := r.FormFile("file"); err == nil {
			gotFilename = header.Filename
		}
		_, _ = w.Write([]byte(transcript))
	}))
	defer srv.Close()

	client := New(srv.URL, time.Minute, time.Second, nil)
	got, err := client.Transcribe(context.Background(), writeTempWAV(t), Options{Translate: true})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got != transcript {
		t.Fatalf("transcript = %q", got)
	}
	if gotFormat != "srt" {
		t.Fatalf("response_format = %q", gotFormat)
	}
	if gotTranslate != "true" {
		t.Fatalf("translate = %q", gotTranslate)
	}
	if gotFilename != "audio.wav" {
		t.Fatalf("filename = %q", gotFilename)
	}
}

func TestTranscribeOmitsTranslateByDefault(t *testing.T) {
	var hadTranslate bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(32 << 20)
		_, hadTranslate = r.MultipartForm.Value["translate"]
		_, _ = w.Write([]byte("1\n00:00:00,000 --> 00:00:01,000\nhi\n"))
	}))
	defer srv.Close()

	client := New(srv.URL, time.Minute, time.Second, nil)
	if _, err := client.Transcribe(context.Background(), writeTempWAV(t), Options{}); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if hadTranslate {
		t.Fatal("translate field should be absent when not requested")
	}
}

func TestTranscribeNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := New(srv.URL, time.Minute, time.Second, nil)
	_, err := client.Transcribe(context.Background(), writeTempWAV(t), Options{})
	if !errors.Is(err, services.ErrInference) {
		t.Fatalf("expected ErrInference, got %v", err)
	}
	if !strings.Contains(err.Error(), "model not loaded") {
		t.Fatalf("server detail lost: %v", err)
	}
}

func TestExtractAudioArgs(t *testing.T) {
	var gotName string
	var gotArgs []string
	runner := func(ctx context.Context, name string, args ...string) error {
		gotName = name
		gotArgs = args
		return nil
	}

	err := ExtractAudio(context.Background(), runner, "ffmpeg", "/media/in.mkv", 1, "/tmp/out.wav")
	if err != nil {
		t.Fatalf("ExtractAudio: %v", err)
	}
	if gotName != "ffmpeg" {
		t.Fatalf("binary = %q", gotName)
	}
	joined := strings.Join(gotArgs, " ")
	for _, want := range []string{"-i /media/in.mkv", "-map 0:1", "-ac 1", "-ar 16000", "-c:a pcm_s16le", "/tmp/out.wav"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args missing %q: %v", want, gotArgs)
		}
	}
}

func TestExtractAudioDefaultStream(t *testing.T) {
	var gotArgs []string
	runner := func(ctx context.Context, name string, args ...string) error {
		gotArgs = args
		return nil
	}
	if err := ExtractAudio(context.Background(), runner, "", "/media/in.mp4", -1, "/tmp/out.wav"); err != nil {
		t.Fatalf("ExtractAudio: %v", err)
	}
	if strings.Contains(strings.Join(gotArgs, " "), "-map") {
		t.Fatalf("negative index should not map a stream: %v", gotArgs)
	}
}
