package collector

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/NanzeRT/queues-demo/pkg/log"
)

func testLogger() log.Logger {
	return log.NewLogger(log.WithOutput(&log.WriterOutput{W: io.Discard}))
}

func fastClient(baseURL string) *Client {
	c := NewClient(baseURL, testLogger())
	c.initialInterval = time.Millisecond
	return c
}

func TestSubmitPostsCompletion(t *testing.T) {
	var got Completion
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/submit" || r.Method != http.MethodPost {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
	}))
	defer srv.Close()

	err := fastClient(srv.URL).Submit(context.Background(), Completion{
		SubmissionID: "sub-1",
		Info:         "flag{ok}",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got.SubmissionID != "sub-1" || got.Info != "flag{ok}" {
		t.Fatalf("received %+v", got)
	}
}

func TestSubmitRetriesTransientFailure(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
	}))
	defer srv.Close()

	if err := fastClient(srv.URL).Submit(context.Background(), Completion{SubmissionID: "s"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Fatalf("made %d attempts, want 3", n)
	}
}

func TestSubmitGivesUpAfterBudget(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if err := fastClient(srv.URL).Submit(context.Background(), Completion{SubmissionID: "s"}); err == nil {
		t.Fatal("want error after exhausting attempts")
	}
	if n := calls.Load(); n != DefaultMaxAttempts {
		t.Fatalf("made %d attempts, want %d", n, DefaultMaxAttempts)
	}
}

func TestSubmitDoesNotRetryRejection(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad report", http.StatusBadRequest)
	}))
	defer srv.Close()

	if err := fastClient(srv.URL).Submit(context.Background(), Completion{SubmissionID: "s"}); err == nil {
		t.Fatal("want error on rejection")
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("made %d attempts, want 1", n)
	}
}
