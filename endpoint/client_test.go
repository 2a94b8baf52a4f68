package endpoint

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/datar-psa/ragscore/api"
)

func newTestClient(t *testing.T, serverURL string, opts ...func(*ClientOptions)) *Client {
	t.Helper()
	opts = append([]func(*ClientOptions){WithBackoffBase(time.Millisecond)}, opts...)
	client, err := NewClient(serverURL, opts...)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestQuery_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if payload["question"] != "What is the capital of France?" {
			t.Errorf("question field = %v", payload["question"])
		}
		json.NewEncoder(w).Encode(map[string]any{"answer": "Paris is the capital of France."})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	got := client.Query(context.Background(), "What is the capital of France?", nil)

	if got.Answer != "Paris is the capital of France." {
		t.Errorf("Query() answer = %q", got.Answer)
	}
	if got.ErrorKind != "" {
		t.Errorf("Query() error kind = %q, want none", got.ErrorKind)
	}
	if got.ElapsedMS < 0 {
		t.Errorf("Query() elapsed = %v, want >= 0", got.ElapsedMS)
	}
	if got.Raw["answer"] != "Paris is the capital of France." {
		t.Errorf("Query() raw payload not preserved: %v", got.Raw)
	}
}

func TestQuery_GetMethod(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if got := r.URL.Query().Get("q"); got != "ping" {
			t.Errorf("query param q = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{"answer": "pong"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, WithMethod("GET"), WithQuestionField("q"))
	got := client.Query(context.Background(), "ping", nil)

	if got.Answer != "pong" {
		t.Errorf("Query() answer = %q, want %q", got.Answer, "pong")
	}
}

func TestQuery_ExtraParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		json.NewDecoder(r.Body).Decode(&payload)
		if payload["top_k"] != float64(3) {
			t.Errorf("extra param top_k = %v", payload["top_k"])
		}
		json.NewEncoder(w).Encode(map[string]any{"answer": "ok"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	client.Query(context.Background(), "q", map[string]any{"top_k": 3})
}

func TestQuery_RetriesRetryableStatus(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"answer": "recovered"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	got := client.Query(context.Background(), "q", nil)

	if got.Answer != "recovered" {
		t.Errorf("Query() answer = %q after retries", got.Answer)
	}
	if n := attempts.Load(); n != 3 {
		t.Errorf("attempts = %d, want 3", n)
	}
}

func TestQuery_ExhaustedRetriesIsSingleHTTPError(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	got := client.Query(context.Background(), "q", nil)

	if got.ErrorKind != api.ErrorKindHTTP {
		t.Errorf("Query() error kind = %q, want %q", got.ErrorKind, api.ErrorKindHTTP)
	}
	if got.Answer != "" {
		t.Errorf("Query() answer = %q, want empty", got.Answer)
	}
	if got.Raw["error"] != api.ErrorKindHTTP {
		t.Errorf("raw error field = %v", got.Raw["error"])
	}
	if n := attempts.Load(); n != DefaultMaxTries {
		t.Errorf("attempts = %d, want %d", n, DefaultMaxTries)
	}
}

func TestQuery_NonRetryableStatusIsNotRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	got := client.Query(context.Background(), "q", nil)

	if got.ErrorKind != api.ErrorKindHTTP {
		t.Errorf("Query() error kind = %q, want %q", got.ErrorKind, api.ErrorKindHTTP)
	}
	if n := attempts.Load(); n != 1 {
		t.Errorf("attempts = %d, want 1", n)
	}
}

func TestQuery_EmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	got := client.Query(context.Background(), "q", nil)

	if got.ErrorKind != api.ErrorKindEmptyBody {
		t.Errorf("Query() error kind = %q, want %q", got.ErrorKind, api.ErrorKindEmptyBody)
	}
}

func TestQuery_NonJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>definitely not json</html>"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	got := client.Query(context.Background(), "q", nil)

	if got.ErrorKind != api.ErrorKindJSONParse {
		t.Errorf("Query() error kind = %q, want %q", got.ErrorKind, api.ErrorKindJSONParse)
	}
	if got.Raw["body_preview"] == nil {
		t.Error("Query() json parse failure should carry a body preview")
	}
}

func TestQuery_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]any{"answer": "too late"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, WithTimeout(30*time.Millisecond))
	got := client.Query(context.Background(), "q", nil)

	if got.ErrorKind != api.ErrorKindTimeout {
		t.Errorf("Query() error kind = %q, want %q", got.ErrorKind, api.ErrorKindTimeout)
	}
	if got.Answer != "" {
		t.Errorf("Query() answer = %q, want empty", got.Answer)
	}
	if got.ElapsedMS < 0 {
		t.Errorf("Query() elapsed = %v, want >= 0", got.ElapsedMS)
	}
}

func TestQuery_StreamingBodyConcatenated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		w.Write([]byte(`{"answer": "streamed`))
		flusher.Flush()
		w.Write([]byte(` answer"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	got := client.Query(context.Background(), "q", nil)

	if got.Answer != "streamed answer" {
		t.Errorf("Query() answer = %q, want %q", got.Answer, "streamed answer")
	}
}

func TestNewClient_Login(t *testing.T) {
	const sessionCookie = "ragscore-session"

	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse login form: %v", err)
		}
		if r.PostFormValue("username") != "alice" || r.PostFormValue("password") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "tok"})
	})
	mux.HandleFunc("/query", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie(sessionCookie); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"answer": "authorized"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, err := NewClient(server.URL+"/query",
		WithLogin(server.URL+"/login", "alice", "secret"),
		WithBackoffBase(time.Millisecond),
	)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	got := client.Query(context.Background(), "q", nil)
	if got.Answer != "authorized" {
		t.Errorf("Query() answer = %q, session cookie not reused", got.Answer)
	}
}

func TestNewClient_LoginFailureIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := NewClient(server.URL+"/query", WithLogin(server.URL+"/login", "alice", "wrong"))
	if !errors.Is(err, api.ErrAuthenticationFailed) {
		t.Errorf("NewClient() error = %v, want ErrAuthenticationFailed", err)
	}
}

func TestNewClient_Validation(t *testing.T) {
	if _, err := NewClient(""); !errors.Is(err, api.ErrInvalidConfig) {
		t.Errorf("NewClient(\"\") error = %v, want ErrInvalidConfig", err)
	}
	if _, err := NewClient("http://x", WithMethod("DELETE")); !errors.Is(err, api.ErrInvalidConfig) {
		t.Errorf("NewClient(DELETE) error = %v, want ErrInvalidConfig", err)
	}
}
