package exploits

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/NanzeRT/queues-demo/pkg/log"
)

func testLogger() log.Logger {
	return log.NewLogger(log.WithOutput(&log.WriterOutput{W: io.Discard}))
}

func TestGetExploitReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method %s", r.Method)
		}
		if r.URL.Path != "/get_exploit/sub-42" {
			t.Errorf("path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte("print('pwn')"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	got, err := c.GetExploit(context.Background(), "sub-42")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "print('pwn')" {
		t.Fatalf("payload %q", got)
	}
}

func TestGetExploitNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not here", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	if _, err := c.GetExploit(context.Background(), "missing"); err == nil {
		t.Fatal("want error on 404")
	}
}

func TestGetExploitServerDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL, testLogger())
	if _, err := c.GetExploit(context.Background(), "any"); err == nil {
		t.Fatal("want error when storage is unreachable")
	}
}

func TestGetExploitEscapesID(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	if _, err := c.GetExploit(context.Background(), "a/b c"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if gotPath != "/get_exploit/a%2Fb%20c" {
		t.Fatalf("path %q", gotPath)
	}
}
