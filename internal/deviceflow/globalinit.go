package deviceflow

import (
	"crypto/x509"
	"sync"
)

// initOutcome is the cached result of the one-time transport
// initialization, mirroring libcurl's curl_global_init threadsafety
// dance: every caller takes the same process-wide lock, but only the
// first one does any work, and everyone after that gets its cached
// outcome.
type initOutcome int

const (
	initUnknown initOutcome = iota
	initSuccess
	initFailure
)

var (
	initMu    sync.Mutex
	initState = initUnknown
	initErr   error
)

// ensureTransportInitialized verifies the process has a usable system
// certificate pool before any flow is allowed to start. It runs at
// most once per process; subsequent calls short-circuit on the cached
// outcome.
func ensureTransportInitialized() error {
	initMu.Lock()
	defer initMu.Unlock()

	switch initState {
	case initSuccess:
		return nil
	case initFailure:
		return initErr
	}

	if _, err := x509.SystemCertPool(); err != nil {
		initState = initFailure
		initErr = &FlowError{Kind: KindSetup, Detail: "no usable system certificate pool: " + err.Error()}
		return initErr
	}

	initState = initSuccess
	return nil
}
