package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCheck(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	stopped := httptest.NewServer(http.NotFoundHandler())
	stoppedURL := stopped.URL
	stopped.Close()

	results := CheckAll(context.Background(), nil, []Service{
		{Name: "CV Evaluation", URL: healthy.URL + "/health"},
		{Name: "Interview", URL: broken.URL + "/health"},
		{Name: "RAG", URL: stoppedURL + "/api/status"},
	})

	want := []HealthStatus{Healthy, Unhealthy, Offline}
	if len(results) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(results))
	}
	for i, result := range results {
		if result.Status != want[i] {
			t.Fatalf("%s: expected %s, got %s (%s)", result.Service.Name, want[i], result.Status, result.Message)
		}
	}

	if results[1].Message != "Interview returned 503" {
		t.Fatalf("unexpected message: %q", results[1].Message)
	}
}

func TestCheckTimeout(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()
	defer close(release)

	client := &http.Client{Timeout: 50 * time.Millisecond}
	result := Check(context.Background(), client, Service{Name: "slow", URL: slow.URL})

	if result.Status != Timeout {
		t.Fatalf("expected timeout, got %s (%s)", result.Status, result.Message)
	}
}
