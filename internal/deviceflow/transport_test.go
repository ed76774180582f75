package deviceflow

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

// oversizedRoundTripper answers every request with a 200 whose body is
// larger than MaxResponseSize, standing in for a provider that streams
// an unbounded response.
type oversizedRoundTripper struct{}

func (oversizedRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	body := strings.Repeat(" ", MaxResponseSize+1024)
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}, nil
}

func pumpTransport(t *testing.T, tr *Transport, timeout time.Duration) (PumpStatus, error) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		status, err := tr.Pump()
		if status != Pending {
			return status, err
		}
		if time.Now().After(deadline) {
			t.Fatal("transport never completed")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestTransportRejectsOversizedResponseBody(t *testing.T) {
	mux, err := NewMultiplexer()
	if err != nil {
		t.Fatalf("NewMultiplexer() error = %v", err)
	}
	defer mux.Close()

	client := &http.Client{Transport: oversizedRoundTripper{}}
	tr := NewTransport(mux, client, false)
	defer tr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := tr.Begin(ctx, http.MethodGet, "https://idp.example/token", nil, "", nil); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	status, pumpErr := pumpTransport(t, tr, 5*time.Second)
	if status != Failed {
		t.Fatalf("status = %v, want Failed", status)
	}
	fe, ok := AsFlowError(pumpErr)
	if !ok {
		t.Fatalf("err = %v, want a *FlowError", pumpErr)
	}
	if fe.Kind != KindProtocol {
		t.Errorf("Kind = %v, want KindProtocol", fe.Kind)
	}
}
