package basex

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExecuteQuery(t *testing.T) {
	var gotMethod, gotPath, gotUser, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotUser, _, _ = r.BasicAuth()
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		io.WriteString(w, "<lift-ranges/>")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "admin", "secret", "lexicon")
	out, err := c.ExecuteQuery(context.Background(), "(collection('lexicon')//lift-ranges)[1]")
	if err != nil {
		t.Fatalf("ExecuteQuery: %v", err)
	}
	if out != "<lift-ranges/>" {
		t.Errorf("out = %q", out)
	}
	if gotMethod != http.MethodPost || gotPath != "/rest" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
	if gotUser != "admin" {
		t.Errorf("basic auth user = %q", gotUser)
	}
	if !strings.Contains(gotBody, restNamespace) || !strings.Contains(gotBody, "collection(&#39;lexicon&#39;)") {
		t.Errorf("body = %q", gotBody)
	}
	if !c.IsConnected() {
		t.Error("client not marked healthy after a successful query")
	}
}

func TestExecuteQueryServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Stopped at ., 1/5: [XPST0003] Unexpected end of query.", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "admin", "admin", "lexicon")
	_, err := c.ExecuteQuery(context.Background(), "((")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "status 400") || !strings.Contains(err.Error(), "XPST0003") {
		t.Errorf("err = %v", err)
	}
}

func TestConnect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<databases/>")
	}))

	c := NewClient(srv.URL, "admin", "admin", "lexicon")
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !c.IsConnected() {
		t.Error("IsConnected = false after successful probe")
	}

	srv.Close()
	if err := c.Connect(context.Background()); err == nil {
		t.Fatal("expected connect error against a closed server")
	}
	if c.IsConnected() {
		t.Error("IsConnected = true after failed probe")
	}
}

func TestDatabase(t *testing.T) {
	c := NewClient("http://localhost:8984/", "admin", "admin", "lexicon")
	if c.Database() != "lexicon" {
		t.Errorf("Database() = %q", c.Database())
	}
}
