package deviceflow

import (
	"errors"
	"fmt"
)

// Kind classifies what part of the flow failed, so a host can decide
// whether a failure is retryable, a misconfiguration, or something to
// surface verbatim to an operator.
type Kind int

const (
	// KindSetup covers host/engine misconfiguration: unsupported
	// platform, bad CA file, invalid client_id.
	KindSetup Kind = iota
	// KindTransport covers network/TLS failures talking to the
	// provider.
	KindTransport
	// KindProtocol covers a provider response that doesn't conform to
	// the expected wire format (bad status, bad content type, broken
	// JSON, oversized body).
	KindProtocol
	// KindIssuerMismatch covers RFC 9207-style issuer mix-up
	// detection: the discovery document's issuer did not match what
	// the caller expected.
	KindIssuerMismatch
	// KindUnsupportedProvider covers a provider that doesn't advertise
	// device-code grant support.
	KindUnsupportedProvider
	// KindOAuthError covers a well-formed RFC 6749 error response from
	// the provider (other than the retryable authorization_pending /
	// slow_down codes, which the flow consumes internally).
	KindOAuthError
	// KindOverflow covers the slow_down interval counter overflowing.
	KindOverflow
	// KindHostCancelled covers the host's prompt hook refusing to
	// continue the flow.
	KindHostCancelled
)

func (k Kind) String() string {
	switch k {
	case KindSetup:
		return "setup"
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	case KindIssuerMismatch:
		return "issuer_mismatch"
	case KindUnsupportedProvider:
		return "unsupported_provider"
	case KindOAuthError:
		return "oauth_error"
	case KindOverflow:
		return "overflow"
	case KindHostCancelled:
		return "host_cancelled"
	default:
		return "unknown"
	}
}

// FlowError is the engine's structured error type. It assembles three
// parts the way the engine's transport layer reports failures: a
// context phrase naming the step that failed, a detail message, and an
// optional low-level transport string (a raw error from the HTTP
// client or TLS stack). Error() renders all three the way a
// command-line client would: "context: detail (transport)".
type FlowError struct {
	Kind      Kind
	Context   string
	Detail    string
	Transport string
}

func (e *FlowError) Error() string {
	var msg string
	if e.Context != "" {
		msg = e.Context + ": " + e.Detail
	} else {
		msg = e.Detail
	}
	if e.Transport != "" {
		t := e.Transport
		for len(t) > 0 && t[len(t)-1] == '\n' {
			t = t[:len(t)-1]
		}
		msg = fmt.Sprintf("%s (%s)", msg, t)
	}
	return msg
}

// AsFlowError is the errors.As-based taxonomy check a host uses to
// recover the structured error (and its Kind) from whatever Poll
// returns.
func AsFlowError(err error) (*FlowError, bool) {
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// withContext fills in a FlowError's Context if it doesn't already
// have one, leaving foreign errors wrapped as a transport failure.
func withContext(err error, context string) error {
	if err == nil {
		return nil
	}
	fe, ok := AsFlowError(err)
	if !ok {
		return &FlowError{Kind: KindTransport, Context: context, Detail: err.Error()}
	}
	if fe.Context == "" {
		fe.Context = context
	}
	return fe
}

// Error codes defined by RFC 6749 section 5.2 and RFC 8628 section 3.5
// that the flow recognizes and handles internally rather than
// surfacing as a terminal OAuthError.
const (
	errorCodeAuthorizationPending = "authorization_pending"
	errorCodeSlowDown             = "slow_down"
)

// Context phrases, one per step that can fail. These match the
// granularity a host would want in a connection log: which leg of the
// handshake broke.
const (
	ctxDiscovery         = "failed to fetch the OpenID discovery document"
	ctxParseDiscovery    = "failed to parse the OpenID discovery document"
	ctxDeviceAuthzRun    = "cannot run OAuth device authorization"
	ctxDeviceAuthzObtain = "failed to obtain a device authorization"
	ctxParseDeviceAuthz  = "failed to parse the device authorization response"
	ctxParseTokenError   = "failed to parse the token error response"
	ctxParseAccessToken  = "failed to parse the access token response"
	ctxObtainToken       = "failed to obtain an access token"
)
