package orchestrator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"aism/internal/models"
)

func TestProbeSuccessOnHealthyEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewProber(DefaultProbeTimeout)
	res := p.Probe(context.Background(), models.ServiceDefinition{
		Name:       "alpha",
		Endpoint:   srv.URL,
		ProbePaths: []string{"/health"},
	})
	if !res.Reachable {
		t.Fatalf("expected reachable, got %+v", res)
	}
	if res.Path != "/health" {
		t.Fatalf("expected /health to answer, got %q", res.Path)
	}
}

func TestProbeTriesFallbackPathsInOrder(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.URL.Path)
		if r.URL.Path == "/api/version" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewProber(DefaultProbeTimeout)
	res := p.Probe(context.Background(), models.ServiceDefinition{
		Name:       "llm",
		Endpoint:   srv.URL,
		ProbePaths: []string{"/api/version", "/"},
	})
	if !res.Reachable || res.Path != "/" {
		t.Fatalf("expected fallback path to win, got %+v", res)
	}
	if len(seen) != 2 || seen[0] != "/api/version" || seen[1] != "/" {
		t.Fatalf("unexpected probe order: %v", seen)
	}
}

func TestProbeConnectionRefusedIsNotAnError(t *testing.T) {
	// Grab a port nobody is listening on.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	p := NewProber(DefaultProbeTimeout)
	res := p.Probe(context.Background(), models.ServiceDefinition{
		Name:       "beta",
		Endpoint:   endpoint,
		ProbePaths: []string{"/health"},
	})
	if res.Reachable {
		t.Fatal("expected unreachable for a closed port")
	}
	if res.Err == nil {
		t.Fatal("expected diagnostic error to be recorded")
	}
}

func TestProbeTimeoutBounded(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer func() {
		close(block)
		srv.Close()
	}()

	p := NewProber(150 * time.Millisecond)
	start := time.Now()
	res := p.Probe(context.Background(), models.ServiceDefinition{
		Name:       "slow",
		Endpoint:   srv.URL,
		ProbePaths: []string{"/health"},
	})
	if res.Reachable {
		t.Fatal("expected unreachable when the endpoint hangs")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("probe was not bounded by its timeout, took %v", elapsed)
	}
}

func TestProbeObservesCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewProber(DefaultProbeTimeout)
	res := p.Probe(ctx, models.ServiceDefinition{
		Name:       "gamma",
		Endpoint:   srv.URL,
		ProbePaths: []string{"/health", "/alt"},
	})
	if res.Reachable {
		t.Fatal("cancelled probe must report unreachable, not propagate")
	}
}
