package main

import (
	"encoding/json"
	"net/http"

	"github.com/wrale/pgoauthdevice"
)

// routes registers the demo host's introspection endpoint: a single
// JSON status payload an operator can curl while running the demo
// interactively.
func (s *server) routes() {
	s.router.Get("/debug/flow", s.handleDebugFlow())
}

func (s *server) handleDebugFlow() http.HandlerFunc {
	type flowStatus struct {
		Version         string `json:"version"`
		Step            string `json:"step"`
		VerificationURI string `json:"verification_uri,omitempty"`
		UserCode        string `json:"user_code,omitempty"`
		HaveToken       bool   `json:"have_token"`
		ErrorMessage    string `json:"error_message,omitempty"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		resp := flowStatus{
			Version:      Version,
			Step:         pgoauthdevice.Step(s.conn),
			HaveToken:    s.conn.Token != "",
			ErrorMessage: s.conn.ErrorMessage,
		}
		if uri, code, ok := pgoauthdevice.VerificationPrompt(s.conn); ok {
			resp.VerificationURI = uri
			resp.UserCode = code
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, "error encoding response", http.StatusInternalServerError)
		}
	}
}
