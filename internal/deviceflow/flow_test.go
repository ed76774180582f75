package deviceflow

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}

func runToCompletion(t *testing.T, f *FlowContext, timeout time.Duration) PollStatus {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		status := f.Poll()
		if status.Kind != PollReading {
			return status
		}
		if time.Now().After(deadline) {
			t.Fatal("flow never completed")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestFlowHappyPath(t *testing.T) {
	var tokenPolls int

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, fmt.Sprintf(`{"issuer":%q,"token_endpoint":%q,"device_authorization_endpoint":%q,
			"grant_types_supported":["urn:ietf:params:oauth:grant-type:device_code"]}`,
			"http://"+r.Host, "http://"+r.Host+"/token", "http://"+r.Host+"/device"))
	})
	mux.HandleFunc("/device", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"device_code":"d","user_code":"ABCD-EFGH","verification_uri":"http://example/verify","interval":0}`)
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokenPolls++
		if tokenPolls < 2 {
			writeJSON(w, 400, `{"error":"authorization_pending"}`)
			return
		}
		writeJSON(w, 200, `{"access_token":"tok-123","token_type":"Bearer"}`)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	f, err := New(Params{
		DiscoveryURI: srv.URL + "/.well-known/openid-configuration",
		IssuerID:     srv.URL,
		ClientID:     "test-client",
		PromptHook:   func(PromptOAuthDevice) int { return 1 },
	}, WithDebug(true))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer f.Close()

	status := runToCompletion(t, f, 5*time.Second)
	if status.Kind != PollOK {
		t.Fatalf("status.Kind = %v, err = %v", status.Kind, status.Err)
	}
	if status.Token != "tok-123" {
		t.Errorf("Token = %q", status.Token)
	}
	if tokenPolls < 2 {
		t.Errorf("expected at least 2 token polls, got %d", tokenPolls)
	}
}

func TestFlowIssuerMismatch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"issuer":"https://someone-else","token_endpoint":"https://x/token"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f, err := New(Params{
		DiscoveryURI: srv.URL + "/.well-known/openid-configuration",
		IssuerID:     srv.URL,
		ClientID:     "test-client",
	}, WithDebug(true))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer f.Close()

	status := runToCompletion(t, f, 5*time.Second)
	if status.Kind != PollFailed {
		t.Fatalf("status.Kind = %v, want PollFailed", status.Kind)
	}
	fe, ok := AsFlowError(status.Err)
	if !ok || fe.Kind != KindIssuerMismatch {
		t.Errorf("err = %v, want KindIssuerMismatch", status.Err)
	}
}

func TestFlowUnsupportedProvider(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, fmt.Sprintf(`{"issuer":%q,"token_endpoint":%q}`, "http://"+r.Host, "http://"+r.Host+"/token"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f, err := New(Params{
		DiscoveryURI: srv.URL + "/.well-known/openid-configuration",
		IssuerID:     srv.URL,
		ClientID:     "test-client",
	}, WithDebug(true))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer f.Close()

	status := runToCompletion(t, f, 5*time.Second)
	if status.Kind != PollFailed {
		t.Fatalf("status.Kind = %v, want PollFailed", status.Kind)
	}
	fe, ok := AsFlowError(status.Err)
	if !ok || fe.Kind != KindUnsupportedProvider {
		t.Errorf("err = %v, want KindUnsupportedProvider", status.Err)
	}
}

func TestFlowSlowDownOverflow(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, fmt.Sprintf(`{"issuer":%q,"token_endpoint":%q,"device_authorization_endpoint":%q,
			"grant_types_supported":["urn:ietf:params:oauth:grant-type:device_code"]}`,
			"http://"+r.Host, "http://"+r.Host+"/token", "http://"+r.Host+"/device"))
	})
	mux.HandleFunc("/device", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"device_code":"d","user_code":"ABCD-EFGH","verification_uri":"http://example/verify","interval":2147483644}`)
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 400, `{"error":"slow_down"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f, err := New(Params{
		DiscoveryURI: srv.URL + "/.well-known/openid-configuration",
		IssuerID:     srv.URL,
		ClientID:     "test-client",
		PromptHook:   func(PromptOAuthDevice) int { return 1 },
	}, WithDebug(true))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer f.Close()

	status := runToCompletion(t, f, 5*time.Second)
	if status.Kind != PollFailed {
		t.Fatalf("status.Kind = %v, want PollFailed", status.Kind)
	}
	fe, ok := AsFlowError(status.Err)
	if !ok || fe.Kind != KindOverflow {
		t.Errorf("err = %v, want KindOverflow", status.Err)
	}
}
