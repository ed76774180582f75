package pgoauthdevice

import (
	"net/http"

	"github.com/wrale/pgoauthdevice/internal/deviceflow"
)

// Conn is the host-supplied connection surface: the subset of a
// database client's connection state that the engine reads from and
// writes to. A host embeds one Conn per connection; FlowContexts never
// share state across Conns.
type Conn struct {
	// DiscoveryURI is the absolute URL of the OIDC discovery document
	// (".well-known/openid-configuration" or equivalent).
	DiscoveryURI string
	// IssuerID is compared byte-exact against the discovery document's
	// issuer, per RFC 9207 issuer mix-up mitigation.
	IssuerID string
	ClientID string
	// ClientSecret is a pointer so an empty-but-present secret (which
	// still selects HTTP Basic client authentication) is distinguishable
	// from no secret at all.
	ClientSecret *string
	Scope        string

	// PromptHook is invoked with the verification URI and user code once
	// per flow, when the first token request's response has arrived. A negative
	// return is fatal, zero falls back to the engine's stderr prompt,
	// positive means the host displayed it itself.
	PromptHook deviceflow.PromptFunc

	// HTTPClient lets a host override the transport's *http.Client
	// (for connection pooling shared with the rest of its process, or
	// test doubles). Nil selects the engine's default client.
	HTTPClient *http.Client
	// Debug enables verbose transport logging to stderr, allows
	// http:// discovery URIs, and relaxes the minimum poll interval to
	// zero. Also settable via the PGOAUTHDEBUG environment variable.
	Debug bool
	// CAFile overrides the TLS CA bundle path; honored only in debug
	// mode. Also settable via PGOAUTHCAFILE.
	CAFile string

	// Token holds the access token once Poll returns Ok.
	Token string
	// ErrorMessage holds the assembled context/detail/transport message
	// once Poll returns Failed.
	ErrorMessage string
	// Altsock is the descriptor the host should poll for readiness
	// between Poll calls while the engine reports Reading.
	Altsock int

	flow *deviceflow.FlowContext
}
