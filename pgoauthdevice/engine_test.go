package pgoauthdevice

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wrale/pgoauthdevice/internal/deviceflow"
)

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}

func TestPollHappyPath(t *testing.T) {
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
		writeJSON(w, 200, `{"access_token":"tok-456","token_type":"Bearer"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	conn := &Conn{
		DiscoveryURI: srv.URL + "/.well-known/openid-configuration",
		IssuerID:     srv.URL,
		ClientID:     "test-client",
		Debug:        true,
		PromptHook:   func(deviceflow.PromptOAuthDevice) int { return 1 },
	}
	defer Cleanup(conn)

	deadline := time.Now().Add(5 * time.Second)
	for {
		result := Poll(conn)
		if result == Ok {
			break
		}
		if result == Failed {
			t.Fatalf("Poll() failed: %s", conn.ErrorMessage)
		}
		if time.Now().After(deadline) {
			t.Fatal("flow never completed")
		}
		time.Sleep(time.Millisecond)
	}

	if conn.Token != "tok-456" {
		t.Errorf("Token = %q", conn.Token)
	}
	if conn.Altsock == 0 {
		t.Error("Altsock was never set")
	}
}

func TestPollSetupFailureFromInvalidClientID(t *testing.T) {
	conn := &Conn{
		DiscoveryURI: "https://idp.example/.well-known/openid-configuration",
		IssuerID:     "https://idp.example",
		ClientID:     "",
	}
	defer Cleanup(conn)

	if result := Poll(conn); result != Failed {
		t.Fatalf("Poll() = %v, want Failed", result)
	}
	if conn.ErrorMessage == "" {
		t.Error("expected ErrorMessage to be set")
	}
}
