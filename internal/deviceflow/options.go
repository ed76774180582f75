package deviceflow

import "net/http"

// Option configures a FlowContext at construction time, beyond the
// connection parameters every flow needs.
type Option func(*Params)

// WithHTTPClient overrides the *http.Client used for discovery,
// device-authorization, and token requests. Tests use this to point
// the engine at an httptest server or a fake RoundTripper.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Params) {
		p.HTTPClient = c
	}
}

// WithDebug forces debug mode on regardless of PGOAUTHDEBUG. Debug
// mode relaxes the https-only transport restriction to allow http for
// test servers, allows a zero-second poll interval, and enables
// request/response trace logging.
func WithDebug(debug bool) Option {
	return func(p *Params) {
		p.Debug = debug
	}
}

// WithCAFile overrides the CA bundle used to validate the provider's
// TLS certificate. Only consulted in debug mode, mirroring
// PGOAUTHCAFILE's production behavior.
func WithCAFile(path string) Option {
	return func(p *Params) {
		p.CAFile = path
	}
}
