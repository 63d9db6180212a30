package orchestrator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"aism/internal/models"
)

func TestEnsureRunningShortCircuitsWhenReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sv := NewSupervisor(NewProber(DefaultProbeTimeout), nil)
	running, proc := sv.EnsureRunning(context.Background(), models.ServiceDefinition{
		Name:       "alpha",
		Endpoint:   srv.URL,
		ProbePaths: []string{"/health"},
		// A candidate that would fail loudly if the supervisor tried it.
		Candidates: []models.LaunchCandidate{{Path: filepath.Join(t.TempDir(), "missing")}},
	})
	if !running {
		t.Fatal("expected running for a reachable endpoint")
	}
	if proc != nil {
		t.Fatal("supervisor must not launch anything for a reachable service")
	}
}

func TestEnsureRunningNoCandidates(t *testing.T) {
	// Endpoint nobody listens on.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	sv := NewSupervisor(NewProber(DefaultProbeTimeout), nil)
	running, proc := sv.EnsureRunning(context.Background(), models.ServiceDefinition{
		Name:     "gamma",
		Endpoint: endpoint,
		Candidates: []models.LaunchCandidate{
			{Path: filepath.Join(t.TempDir(), "does-not-exist")},
			{Path: ""},
		},
	})
	if running {
		t.Fatal("expected not running when no candidate exists")
	}
	if proc != nil {
		t.Fatal("expected no process handle when nothing was launched")
	}
}

func TestFindCandidateSkipsMissingAndDirectories(t *testing.T) {
	dir := t.TempDir()
	real := filepath.Join(dir, "service.bin")
	if err := writeExecutable(real); err != nil {
		t.Fatal(err)
	}

	sv := NewSupervisor(NewProber(DefaultProbeTimeout), nil)
	candidate, ok := sv.findCandidate(models.ServiceDefinition{
		Candidates: []models.LaunchCandidate{
			{Path: filepath.Join(dir, "missing.bin")},
			{Path: dir}, // a directory is not launchable
			{Path: real, Args: []string{"--serve"}},
		},
	})
	if !ok {
		t.Fatal("expected the existing file to be selected")
	}
	if candidate.Path != real {
		t.Fatalf("expected %s, got %s", real, candidate.Path)
	}
}
