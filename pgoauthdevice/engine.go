// Package pgoauthdevice embeds an OAuth 2.0 Device Authorization Grant
// (RFC 8628) client into a database client library's connection state
// machine. A host drives one Conn per connection by calling Poll
// repeatedly — on first call, and again every time Conn.Altsock becomes
// readable — until it stops returning Reading.
package pgoauthdevice

import "github.com/wrale/pgoauthdevice/internal/deviceflow"

// Result is the outcome of one Poll call.
type Result int

const (
	// Reading means the flow is waiting on I/O or a timer; the host
	// should wait for Conn.Altsock to become readable before calling
	// Poll again.
	Reading Result = iota
	// Ok means the flow finished; Conn.Token holds the access token.
	Ok
	// Failed means the flow terminated; Conn.ErrorMessage holds the
	// assembled error.
	Failed
)

// Poll advances conn's device authorization flow as far as it can
// without blocking. On the first call for a given Conn it constructs
// the underlying FlowContext; every call after that resumes it.
func Poll(conn *Conn) Result {
	if conn.flow == nil {
		flow, err := deviceflow.New(deviceflow.Params{
			DiscoveryURI: conn.DiscoveryURI,
			IssuerID:     conn.IssuerID,
			ClientID:     conn.ClientID,
			ClientSecret: conn.ClientSecret,
			Scope:        conn.Scope,
			PromptHook:   conn.PromptHook,
			HTTPClient:   conn.HTTPClient,
			Debug:        conn.Debug,
			CAFile:       conn.CAFile,
		})
		if err != nil {
			conn.ErrorMessage = err.Error()
			return Failed
		}
		conn.flow = flow
		conn.Altsock = flow.Descriptor()
	}

	status := conn.flow.Poll()
	switch status.Kind {
	case deviceflow.PollOK:
		conn.Token = status.Token
		return Ok
	case deviceflow.PollFailed:
		conn.ErrorMessage = status.Err.Error()
		return Failed
	default:
		return Reading
	}
}

// Step reports conn's current flow state for diagnostics; it returns
// "unstarted" before the first Poll call.
func Step(conn *Conn) string {
	if conn.flow == nil {
		return "unstarted"
	}
	return conn.flow.Step()
}

// VerificationPrompt returns the verification URI and user code once
// the device authorization response has been obtained.
func VerificationPrompt(conn *Conn) (uri, userCode string, ok bool) {
	if conn.flow == nil {
		return "", "", false
	}
	return conn.flow.VerificationPrompt()
}

// Cleanup releases conn's transport handles and multiplexer
// descriptor. It is idempotent and safe to call even if Poll was never
// called or already returned Ok/Failed.
func Cleanup(conn *Conn) {
	if conn.flow == nil {
		return
	}
	conn.flow.Close()
	conn.flow = nil
	conn.Altsock = 0
}
