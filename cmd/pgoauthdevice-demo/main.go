// Command pgoauthdevice-demo drives the device authorization engine
// from a real event loop, the way a database client embeds it: the
// engine's aggregated descriptor is polled for readiness between Poll
// calls instead of busy-waiting.
package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/oauth2"
	"golang.org/x/sys/unix"

	"github.com/wrale/pgoauthdevice"
	"github.com/wrale/pgoauthdevice/internal/deviceflow"
)

// Version is set by the build process
var Version = "dev"

type server struct {
	cfg    Config
	router *chi.Mux
	conn   *pgoauthdevice.Conn
}

func main() {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	// An empty client secret is treated as "no secret" for the demo:
	// distinguishing empty-but-present from absent needs a second
	// environment variable that this interactive demo doesn't bother
	// exposing.
	var secret *string
	if cfg.ClientSecret != "" {
		secret = &cfg.ClientSecret
	}

	conn := &pgoauthdevice.Conn{
		DiscoveryURI: cfg.DiscoveryURI,
		IssuerID:     cfg.IssuerID,
		ClientID:     cfg.ClientID,
		ClientSecret: secret,
		Scope:        cfg.Scope,
		PromptHook: func(prompt deviceflow.PromptOAuthDevice) int {
			fmt.Printf("visit %s and enter code %s\n", prompt.VerificationURI, prompt.UserCode)
			fmt.Print(generateVerificationQRCode(prompt.VerificationURI))
			return 1
		},
	}

	srv := &server{
		cfg:    cfg,
		router: chi.NewRouter(),
		conn:   conn,
	}
	srv.router.Use(middleware.Logger)
	srv.router.Use(middleware.Recoverer)
	srv.routes()

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: srv.router,
	}
	go func() {
		log.Printf("diagnostics listening on port %d", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("diagnostics server error: %v", err)
		}
	}()

	token, err := runFlow(conn)
	if err != nil {
		log.Fatalf("device authorization failed: %v", err)
	}

	wrapped := &oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}
	log.Printf("obtained access token (type=%s, len=%d)", wrapped.TokenType, len(wrapped.AccessToken))
}

// runFlow drives conn to completion, waiting for conn.Altsock to become
// readable between Poll calls instead of busy-waiting — the real-event-loop
// counterpart to the busy-poll used in tests.
func runFlow(conn *pgoauthdevice.Conn) (string, error) {
	for {
		switch pgoauthdevice.Poll(conn) {
		case pgoauthdevice.Ok:
			return conn.Token, nil
		case pgoauthdevice.Failed:
			return "", errors.New(conn.ErrorMessage)
		case pgoauthdevice.Reading:
			if err := waitReadable(conn.Altsock, 30*time.Second); err != nil {
				return "", err
			}
		}
	}
}

func waitReadable(fd int, timeout time.Duration) error {
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, int(timeout/time.Millisecond))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("polling device flow descriptor: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("device flow descriptor not ready after %s", timeout)
		}
		return nil
	}
}
