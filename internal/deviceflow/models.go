// Package deviceflow drives the client side of an OAuth 2.0 Device
// Authorization Grant (RFC 8628), layered on OpenID Connect / RFC 8414
// discovery, as a non-blocking state machine suitable for embedding in
// a database client's connection polling loop.
package deviceflow

// ProviderMetadata holds the subset of an OpenID Provider's discovery
// document (RFC 8414) this package cares about.
type ProviderMetadata struct {
	Issuer                      string
	TokenEndpoint               string
	DeviceAuthorizationEndpoint string
	GrantTypesSupported         []string
}

// DeviceAuthorization is the response to a device authorization request
// per RFC 8628 section 3.2.
type DeviceAuthorization struct {
	DeviceCode      string
	UserCode        string
	VerificationURI string
	Interval        int32
}

// tokenError is a parsed RFC 6749 section 5.2 error response.
type tokenError struct {
	Code        string
	Description string
}

// PromptOAuthDevice carries the verification URI and user code a host
// should surface to the end user, per RFC 8628 section 3.3.
type PromptOAuthDevice struct {
	VerificationURI string
	UserCode        string
}

// PromptFunc is supplied by the host to display the verification URI
// and user code. A negative return aborts the flow; zero asks the
// engine to fall back to its own stderr prompt; positive means the
// host handled the prompt itself.
type PromptFunc func(PromptOAuthDevice) int

const grantTypeDeviceCode = "urn:ietf:params:oauth:grant-type:device_code"
