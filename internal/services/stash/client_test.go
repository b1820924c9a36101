package stash

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"subgen/internal/services"
)

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

func newGraphQLServer(t *testing.T, handler func(req graphQLRequest) (string, int)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/graphql" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req graphQLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		body, status := handler(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestFindScene(t *testing.T) {
	srv := newGraphQLServer(t, func(req graphQLRequest) (string, int) {
		if !strings.Contains(req.Query, "findScene") {
			t.Errorf("unexpected query: %s", req.Query)
		}
		if req.Variables["id"] != "12" {
			t.Errorf("id variable = %v", req.Variables["id"])
		}
		return `{"data": {"findScene": {"id": "12", "title": "clip",
			"files": [{"id": "90", "path": "/media/clip.mp4"}]}}}`, http.StatusOK
	})
	defer srv.Close()

	client := NewClient(srv.URL)
	scene, err := client.FindScene(context.Background(), 12)
	if err != nil {
		t.Fatalf("FindScene: %v", err)
	}
	if scene.PrimaryPath() != "/media/clip.mp4" {
		t.Fatalf("primary path = %q", scene.PrimaryPath())
	}
}

func TestFindSceneNotFound(t *testing.T) {
	srv := newGraphQLServer(t, func(req graphQLRequest) (string, int) {
		return `{"data": {"findScene": null}}`, http.StatusOK
	})
	defer srv.Close()

	_, err := NewClient(srv.URL).FindScene(context.Background(), 999)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLatestScenePicksNewest(t *testing.T) {
	srv := newGraphQLServer(t, func(req graphQLRequest) (string, int) {
		if strings.Contains(req.Query, "allScenes") {
			return `{"data": {"allScenes": [
				{"id": "1", "updated_at": "2026-01-01T00:00:00Z"},
				{"id": "7", "updated_at": "2026-06-15T10:00:00Z"},
				{"id": "3", "updated_at": "2026-02-01T00:00:00Z"}
			]}}`, http.StatusOK
		}
		if req.Variables["id"] != "7" {
			t.Errorf("expected follow-up lookup for scene 7, got %v", req.Variables["id"])
		}
		return `{"data": {"findScene": {"id": "7", "title": "newest",
			"files": [{"id": "2", "path": "/media/new.mkv"}]}}}`, http.StatusOK
	})
	defer srv.Close()

	scene, err := NewClient(srv.URL).LatestScene(context.Background())
	if err != nil {
		t.Fatalf("LatestScene: %v", err)
	}
	if scene.ID != "7" {
		t.Fatalf("scene id = %q", scene.ID)
	}
}

func TestQuerySendsAuthHeaders(t *testing.T) {
	var gotAPIKey string
	var gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("ApiKey")
		if cookie, err := r.Cookie("session"); err == nil {
			gotCookie = cookie.Value
		}
		_, _ = w.Write([]byte(`{"data": {"allScenes": [{"id": "1", "updated_at": "x"}]}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithAPIKey("secret"), WithSessionCookie("session", "tok"))
	_, _ = client.LatestScene(context.Background())

	if gotAPIKey != "secret" {
		t.Fatalf("ApiKey header = %q", gotAPIKey)
	}
	if gotCookie != "tok" {
		t.Fatalf("session cookie = %q", gotCookie)
	}
}

func TestQuerySurfacesGraphQLErrors(t *testing.T) {
	srv := newGraphQLServer(t, func(req graphQLRequest) (string, int) {
		return `{"errors": [{"message": "scene does not exist"}]}`, http.StatusOK
	})
	defer srv.Close()

	_, err := NewClient(srv.URL).FindScene(context.Background(), 5)
	if !errors.Is(err, services.ErrHostAPI) {
		t.Fatalf("expected ErrHostAPI, got %v", err)
	}
	if !strings.Contains(err.Error(), "scene does not exist") {
		t.Fatalf("error message lost: %v", err)
	}
}

func TestPluginSetting(t *testing.T) {
	srv := newGraphQLServer(t, func(req graphQLRequest) (string, int) {
		return `{"data": {"configuration": {"plugins": {
			"subgen": {"serverUrl": "http://cfg:9191/inference"}
		}}}}`, http.StatusOK
	})
	defer srv.Close()

	value, ok, err := NewClient(srv.URL).PluginSetting(context.Background(), []string{"subgen", "whisper_transcribe"}, "serverUrl")
	if err != nil {
		t.Fatalf("PluginSetting: %v", err)
	}
	if !ok || value != "http://cfg:9191/inference" {
		t.Fatalf("setting = %q, ok=%v", value, ok)
	}
}
