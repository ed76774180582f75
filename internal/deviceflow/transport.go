package deviceflow

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
)

// MaxResponseSize is the body size cap (§I6): a provider response
// larger than this is treated as a protocol failure rather than read
// to completion.
const MaxResponseSize = 1 << 20 // 1 MiB

// PumpStatus is the outcome of draining one Transport request.
type PumpStatus int

const (
	Pending PumpStatus = iota
	Done
	Failed
)

// Transport bridges Go's synchronous net/http.Client.Do into the
// single descriptor a Multiplexer-driven poll loop expects: Begin
// launches the request on a goroutine, which signals completion by
// writing to a pipe whose read end is registered with the Multiplexer.
// Pump never blocks; it only inspects a mutex-guarded result and,
// once the goroutine is done, deregisters and closes the pipe. This is
// the Go-native equivalent of wiring an async HTTP client into
// libcurl's CURLMOPT_SOCKETFUNCTION callback: net/http has no such
// callback, so a goroutine plus a wake-up descriptor stands in for it.
type Transport struct {
	mux    Multiplexer
	client *http.Client
	debug  bool

	mu       sync.Mutex
	done     bool
	pipeR    int
	pipeW    int
	result   transportResult
	pipeOpen bool
}

type transportResult struct {
	status      int
	contentType string
	body        []byte
	err         error
}

// NewTransport constructs a Transport that drives requests through mux
// and client. debug enables http:// URLs (otherwise only https:// is
// permitted) and request/response trace logging to stderr.
func NewTransport(mux Multiplexer, client *http.Client, debug bool) *Transport {
	return &Transport{mux: mux, client: client, debug: debug}
}

// Begin starts a request. auth, if non-nil, is sent as HTTP Basic
// credentials (already urlencoded by the caller); otherwise headers
// and body carry whatever client identification the caller built in.
func (t *Transport) Begin(ctx context.Context, method, rawURL string, headers map[string]string, body string, auth *basicAuth) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return &FlowError{Kind: KindSetup, Detail: "invalid URL: " + err.Error()}
	}
	if parsed.Scheme != "https" && !(t.debug && parsed.Scheme == "http") {
		return &FlowError{Kind: KindProtocol, Detail: fmt.Sprintf("unsupported URL scheme %q", parsed.Scheme)}
	}

	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return &FlowError{Kind: KindSetup, Detail: "pipe: " + err.Error()}
	}

	t.mu.Lock()
	t.done = false
	t.pipeR, t.pipeW = fds[0], fds[1]
	t.pipeOpen = true
	t.result = transportResult{}
	t.mu.Unlock()

	if err := t.mux.Register(t.pipeR, Read); err != nil {
		unix.Close(fds[0])
		unix.Close(fds[1])
		return err
	}

	go t.run(ctx, method, rawURL, headers, body, auth)
	return nil
}

func (t *Transport) run(ctx context.Context, method, rawURL string, headers map[string]string, body string, auth *basicAuth) {
	var result transportResult

	req, err := http.NewRequestWithContext(ctx, method, rawURL, strings.NewReader(body))
	if err != nil {
		result.err = err
	} else {
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		req.Header.Set("Accept", "")
		if auth != nil {
			req.SetBasicAuth(auth.username, auth.password)
		}
		if t.debug {
			logExchange(">", fmt.Sprintf("%s %s", req.Method, req.URL), body)
		}

		resp, doErr := t.client.Do(req)
		if doErr != nil {
			result.err = doErr
		} else {
			defer resp.Body.Close()
			limited := io.LimitReader(resp.Body, MaxResponseSize+1)
			data, readErr := io.ReadAll(limited)
			switch {
			case readErr != nil:
				result.err = readErr
			case len(data) > MaxResponseSize:
				result.err = &FlowError{Kind: KindProtocol, Detail: "response exceeded the maximum allowed size"}
			default:
				result.status = resp.StatusCode
				result.contentType = resp.Header.Get("Content-Type")
				result.body = data
				if t.debug {
					logExchange("<", fmt.Sprintf("HTTP %d", resp.StatusCode), string(data))
				}
			}
		}
	}

	t.mu.Lock()
	t.result = result
	t.done = true
	if t.pipeOpen {
		unix.Write(t.pipeW, []byte{0})
	}
	t.mu.Unlock()
}

// Pump never blocks: it reports Pending until the background request
// finishes, then deregisters and closes the wake-up descriptor and
// reports Done or Failed.
func (t *Transport) Pump() (PumpStatus, error) {
	t.mu.Lock()
	done := t.done
	result := t.result
	t.mu.Unlock()

	if !done {
		return Pending, nil
	}

	t.closePipe()

	if result.err != nil {
		fe, ok := AsFlowError(result.err)
		if ok {
			return Failed, fe
		}
		return Failed, &FlowError{Kind: KindTransport, Detail: "request failed", Transport: result.err.Error()}
	}
	return Done, nil
}

func (t *Transport) closePipe() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.pipeOpen {
		return
	}
	t.mux.Register(t.pipeR, Remove)
	unix.Close(t.pipeR)
	unix.Close(t.pipeW)
	t.pipeOpen = false
}

func (t *Transport) status() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result.status
}

func (t *Transport) contentType() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result.contentType
}

func (t *Transport) responseBody() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result.body
}

// Close releases any in-flight request's wake-up descriptor. Safe to
// call whether or not a request is in flight.
func (t *Transport) Close() error {
	t.closePipe()
	return nil
}

// logExchange writes a libcurl-debug-style trace line: a direction
// marker, a summary, and the payload, to stderr.
func logExchange(direction, summary, payload string) {
	fmt.Fprintf(os.Stderr, "* %s %s\n", direction, summary)
	if payload != "" {
		for _, line := range strings.Split(strings.TrimRight(payload, "\n"), "\n") {
			fmt.Fprintf(os.Stderr, "%s %s\n", direction, line)
		}
	}
}

// tlsConfigFromCAFile loads a CA bundle for PGOAUTHCAFILE-style
// overrides, active only in debug mode.
func tlsConfigFromCAFile(path string) (*tls.Config, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", path)
	}
	return &tls.Config{RootCAs: pool}, nil
}
