package daemonctl

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newFakeDaemon(t *testing.T, token string) (*httptest.Server, *[]string) {
	t.Helper()
	var requests []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.Method+" "+r.URL.RequestURI())
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
			return
		}
		switch {
		case r.URL.Path == "/api/status":
			_ = json.NewEncoder(w).Encode(map[string]any{"running": true, "pid": 42})
		case r.URL.Path == "/api/enrich":
			var req struct {
				Words []string `json:"words"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			_ = json.NewEncoder(w).Encode(map[string]any{"created": len(req.Words)})
		case r.URL.Path == "/api/distribute":
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "a run is already in progress"})
		case r.URL.Path == "/api/history":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"runs": []map[string]any{{"kind": "enrich", "created": 3}},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func TestClientCallsWithBearerToken(t *testing.T) {
	server, requests := newFakeDaemon(t, "secret")
	client := New(server.URL, "secret")

	status, err := client.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.Running || status.PID != 42 {
		t.Fatalf("unexpected status %+v", status)
	}

	summary, err := client.Enrich(context.Background(), []string{"uno", "dos"}, "es")
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	if summary.Created != 2 {
		t.Fatalf("expected 2 created, got %d", summary.Created)
	}

	runs, err := client.History(context.Background(), 5)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(runs) != 1 || runs[0].Kind != "enrich" {
		t.Fatalf("unexpected runs %+v", runs)
	}
	found := false
	for _, req := range *requests {
		if req == "GET /api/history?limit=5" {
			found = true
		}
	}
	if !found {
		t.Fatalf("limit not sent, requests: %v", *requests)
	}
}

func TestClientRejectsWrongToken(t *testing.T) {
	server, _ := newFakeDaemon(t, "secret")
	client := New(server.URL, "wrong")

	_, err := client.Status(context.Background())
	if err == nil || !strings.Contains(err.Error(), "unauthorized") {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	server, _ := newFakeDaemon(t, "")
	client := New(server.URL, "")

	_, err := client.Distribute(context.Background())
	if err == nil || !strings.Contains(err.Error(), "already in progress") {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestClientReportsDaemonNotRunning(t *testing.T) {
	server, _ := newFakeDaemon(t, "")
	addr := server.URL
	server.Close()

	client := New(addr, "")
	_, err := client.Status(context.Background())
	if !errors.Is(err, ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}

	if err := New("", "").call(context.Background(), http.MethodGet, "/api/status", nil, nil); !errors.Is(err, ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning for empty bind, got %v", err)
	}
}
