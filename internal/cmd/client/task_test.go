package client

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func execute(t *testing.T, cmd *cobra.Command, args ...string) error {
	t.Helper()
	cmd.SetArgs(args)
	return cmd.Execute()
}

func TestTaskAddPostsSubmission(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/queue/add_task" {
			t.Errorf("path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": strings.Repeat("0", 32)})
	}))
	defer srv.Close()

	root := NewRoot(func() string { return srv.URL })
	var out bytes.Buffer
	root.SetOut(&out)
	if err := execute(t, root, "task", "add", "--submission-id", "team1"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got["submission_id"] != "team1" {
		t.Fatalf("posted %+v", got)
	}
	if !strings.Contains(out.String(), strings.Repeat("0", 32)) {
		t.Fatalf("output %q", out.String())
	}
}

func TestTaskGetPassesTimeout(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte("null"))
	}))
	defer srv.Close()

	root := NewRoot(func() string { return srv.URL })
	root.SetOut(new(bytes.Buffer))
	if err := execute(t, root, "task", "get", "--timeout-ms", "250"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if gotQuery != "timeout_ms=250" {
		t.Fatalf("query %q", gotQuery)
	}
}

func TestTaskCompleteStaleLeaseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	root := NewRoot(func() string { return srv.URL })
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	err := execute(t, root, "task", "complete", "--id", strings.Repeat("a", 32), "--info", "x")
	if err == nil || !strings.Contains(err.Error(), "no active lease") {
		t.Fatalf("got %v", err)
	}
}
