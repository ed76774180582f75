package deviceflow

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/wrale/pgoauthdevice/internal/validation"
)

// Step names a state of the flow's progression: Init → Discovery →
// DeviceAuthz → TokenRequest ⇄ WaitInterval → Done, with Failed
// reachable from anywhere.
type Step int

const (
	StepInit Step = iota
	StepDiscovery
	StepDeviceAuthz
	StepTokenRequest
	StepWaitInterval
	StepDone
	StepFailed
)

// PollKind is the outcome of one Poll call.
type PollKind int

const (
	// PollReading means the flow is waiting on I/O; the host should
	// wait for Descriptor() to become readable (or its timer to fire)
	// before calling Poll again.
	PollReading PollKind = iota
	// PollOK means the flow finished and produced a bearer token.
	PollOK
	// PollFailed means the flow terminated with an error.
	PollFailed
)

// PollStatus is returned by every Poll call.
type PollStatus struct {
	Kind  PollKind
	Token string
	Err   error
}

// Params are the per-connection inputs a host supplies when starting a
// flow.
type Params struct {
	DiscoveryURI string
	IssuerID     string
	ClientID     string
	// ClientSecret is a pointer so an empty-but-present secret (which
	// still selects HTTP Basic client authentication) is distinguishable
	// from no secret at all.
	ClientSecret *string
	Scope        string
	PromptHook   PromptFunc

	HTTPClient *http.Client
	Debug      bool
	CAFile     string
}

// FlowContext drives one run of the device authorization grant for one
// connection. It is not safe for concurrent use; a host drives it from
// a single thread the way it drives the rest of its connection state
// machine.
type FlowContext struct {
	step Step

	mux       Multiplexer
	transport *Transport

	ctx    context.Context
	cancel context.CancelFunc

	discoveryURI string
	issuerID     string
	clientID     string
	clientSecret *string
	scope        string
	promptHook   PromptFunc
	debug        bool

	provider ProviderMetadata
	authz    DeviceAuthorization
	token    string

	errCtx        string
	err           *FlowError
	userPrompted  bool
	usedBasicAuth bool
}

// New builds a FlowContext ready to begin discovery. It performs the
// engine's one-time transport initialization and allocates a platform
// Multiplexer; both failures are reported as KindSetup.
func New(p Params, opts ...Option) (*FlowContext, error) {
	for _, opt := range opts {
		opt(&p)
	}

	if err := validation.ValidateClientID(p.ClientID); err != nil {
		return nil, &FlowError{Kind: KindSetup, Detail: err.Error()}
	}
	if p.ClientSecret != nil {
		if err := validation.ValidateClientSecret(*p.ClientSecret); err != nil {
			return nil, &FlowError{Kind: KindSetup, Detail: err.Error()}
		}
	}
	if err := validation.ValidateScope(p.Scope); err != nil {
		return nil, &FlowError{Kind: KindSetup, Detail: err.Error()}
	}

	if err := ensureTransportInitialized(); err != nil {
		return nil, err
	}

	mux, err := NewMultiplexer()
	if err != nil {
		return nil, err
	}

	debug := p.Debug || os.Getenv("PGOAUTHDEBUG") != ""

	client := p.HTTPClient
	if client == nil {
		client = &http.Client{}
		caFile := p.CAFile
		if caFile == "" {
			caFile = os.Getenv("PGOAUTHCAFILE")
		}
		if debug && caFile != "" {
			tlsCfg, cfgErr := tlsConfigFromCAFile(caFile)
			if cfgErr != nil {
				mux.Close()
				return nil, &FlowError{Kind: KindSetup, Detail: cfgErr.Error()}
			}
			client.Transport = &http.Transport{TLSClientConfig: tlsCfg}
		}
	}

	transport := NewTransport(mux, client, debug)
	ctx, cancel := context.WithCancel(context.Background())

	return &FlowContext{
		step:         StepInit,
		mux:          mux,
		transport:    transport,
		ctx:          ctx,
		cancel:       cancel,
		discoveryURI: p.DiscoveryURI,
		issuerID:     p.IssuerID,
		clientID:     p.ClientID,
		clientSecret: p.ClientSecret,
		scope:        p.Scope,
		promptHook:   p.PromptHook,
		debug:        debug,
	}, nil
}

// Descriptor returns the aggregated descriptor a host should poll for
// readiness between Poll calls.
func (f *FlowContext) Descriptor() int {
	return f.mux.Descriptor()
}

// Step reports the flow's current state as a name, for host-side
// introspection and diagnostics; it carries no behavioral meaning.
func (f *FlowContext) Step() string {
	switch f.step {
	case StepInit:
		return "init"
	case StepDiscovery:
		return "discovery"
	case StepDeviceAuthz:
		return "device_authz"
	case StepTokenRequest:
		return "token_request"
	case StepWaitInterval:
		return "wait_interval"
	case StepDone:
		return "done"
	case StepFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// VerificationPrompt returns the verification URI and user code once the
// device authorization response has been obtained, for host-side
// display alongside (or instead of) the built-in stderr prompt.
func (f *FlowContext) VerificationPrompt() (uri, userCode string, ok bool) {
	if f.authz.VerificationURI == "" {
		return "", "", false
	}
	return f.authz.VerificationURI, f.authz.UserCode, true
}

// Close releases the flow's Multiplexer and any in-flight request.
func (f *FlowContext) Close() error {
	f.cancel()
	if f.transport != nil {
		f.transport.Close()
	}
	if f.mux != nil {
		return f.mux.Close()
	}
	return nil
}

// Poll advances the flow as far as it can without blocking. A host
// calls it once up front, then again every time Descriptor() becomes
// ready, until it returns something other than PollReading.
func (f *FlowContext) Poll() PollStatus {
	restore := maskSigpipe()
	defer restore()

	switch f.step {
	case StepDone:
		return PollStatus{Kind: PollOK, Token: f.token}
	case StepFailed:
		return PollStatus{Kind: PollFailed, Err: f.err}
	}

	for {
		switch f.step {
		case StepInit:
			f.errCtx = ctxDiscovery
			if err := f.beginDiscovery(); err != nil {
				return f.fail(err)
			}
			f.step = StepDiscovery
			return PollStatus{Kind: PollReading}

		case StepDiscovery:
			status, perr := f.transport.Pump()
			if perr != nil {
				return f.fail(perr)
			}
			if status == Pending {
				return PollStatus{Kind: PollReading}
			}
			if err := f.finishDiscovery(); err != nil {
				return f.fail(err)
			}
			if err := f.checkIssuer(); err != nil {
				return f.fail(err)
			}
			f.errCtx = ctxDeviceAuthzRun
			if err := f.checkDeviceFlowSupport(); err != nil {
				return f.fail(err)
			}
			f.errCtx = ctxDeviceAuthzObtain
			if err := f.beginDeviceAuthz(); err != nil {
				return f.fail(err)
			}
			f.step = StepDeviceAuthz
			return PollStatus{Kind: PollReading}

		case StepDeviceAuthz:
			status, perr := f.transport.Pump()
			if perr != nil {
				return f.fail(perr)
			}
			if status == Pending {
				return PollStatus{Kind: PollReading}
			}
			if err := f.finishDeviceAuthz(); err != nil {
				return f.fail(err)
			}
			f.errCtx = ctxObtainToken
			if err := f.beginTokenRequest(); err != nil {
				return f.fail(err)
			}
			f.step = StepTokenRequest
			return PollStatus{Kind: PollReading}

		case StepTokenRequest:
			status, perr := f.transport.Pump()
			if perr != nil {
				return f.fail(perr)
			}
			if status == Pending {
				return PollStatus{Kind: PollReading}
			}
			token, retry, err := f.handleTokenResponse()
			if err != nil {
				return f.fail(err)
			}
			if !f.userPrompted {
				if perr := runPrompt(f.promptHook, f.authz); perr != nil {
					return f.fail(perr)
				}
				f.userPrompted = true
			}
			if !retry {
				f.token = token
				f.step = StepDone
				return PollStatus{Kind: PollOK, Token: token}
			}
			if err := f.mux.SetTimer(int64(f.authz.Interval) * 1000); err != nil {
				return f.fail(err)
			}
			f.step = StepWaitInterval
			return PollStatus{Kind: PollReading}

		case StepWaitInterval:
			f.errCtx = ctxObtainToken
			if err := f.beginTokenRequest(); err != nil {
				return f.fail(err)
			}
			f.step = StepTokenRequest
			return PollStatus{Kind: PollReading}

		default:
			return f.fail(&FlowError{Kind: KindSetup, Detail: "flow is in an unexpected state"})
		}
	}
}

func (f *FlowContext) fail(err error) PollStatus {
	fe, ok := AsFlowError(err)
	if !ok {
		fe = &FlowError{Kind: KindTransport, Detail: err.Error()}
	}
	if fe.Context == "" {
		fe.Context = f.errCtx
	}
	f.err = fe
	f.step = StepFailed
	return PollStatus{Kind: PollFailed, Err: fe}
}

func (f *FlowContext) beginDiscovery() error {
	return f.transport.Begin(f.ctx, http.MethodGet, f.discoveryURI, nil, "", nil)
}

func (f *FlowContext) finishDiscovery() error {
	status := f.transport.status()
	if status != http.StatusOK {
		return &FlowError{Context: ctxDiscovery, Kind: KindProtocol, Detail: fmt.Sprintf("unexpected response code %d", status)}
	}
	p, err := parseProviderMetadata(f.transport.responseBody(), f.transport.contentType())
	if err != nil {
		return withContext(err, ctxParseDiscovery)
	}
	f.provider = p
	return nil
}

func (f *FlowContext) checkIssuer() error {
	// RFC 9207-style issuer mix-up mitigation: compare byte-exact, no
	// normalization.
	if f.provider.Issuer != f.issuerID {
		return &FlowError{
			Kind:   KindIssuerMismatch,
			Detail: fmt.Sprintf("the issuer identifier (%s) does not match oauth_issuer (%s)", f.provider.Issuer, f.issuerID),
		}
	}
	return nil
}

func (f *FlowContext) checkDeviceFlowSupport() error {
	supported := false
	for _, g := range f.provider.GrantTypesSupported {
		if g == grantTypeDeviceCode {
			supported = true
			break
		}
	}
	if !supported {
		return &FlowError{Kind: KindUnsupportedProvider, Detail: fmt.Sprintf("issuer %q does not support OAuth device code grants", f.provider.Issuer)}
	}
	if f.provider.DeviceAuthorizationEndpoint == "" {
		return &FlowError{Kind: KindUnsupportedProvider, Detail: fmt.Sprintf("issuer %q has no device authorization endpoint", f.provider.Issuer)}
	}
	return nil
}

func (f *FlowContext) beginDeviceAuthz() error {
	var pairs []formPair
	if f.scope != "" {
		pairs = append(pairs, formPair{key: "scope", value: f.scope})
	}
	idPairs, auth, usedBasic := clientIdentification(f.clientID, f.clientSecret)
	pairs = append(pairs, idPairs...)
	f.usedBasicAuth = usedBasic
	body := buildForm(pairs...)
	return f.transport.Begin(f.ctx, http.MethodPost, f.provider.DeviceAuthorizationEndpoint, formHeaders(), body, auth)
}

func (f *FlowContext) finishDeviceAuthz() error {
	status := f.transport.status()
	body, ct := f.transport.responseBody(), f.transport.contentType()
	switch status {
	case http.StatusOK:
		authz, err := parseDeviceAuthorization(body, ct, f.debug)
		if err != nil {
			return withContext(err, ctxParseDeviceAuthz)
		}
		f.authz = authz
		return nil
	case http.StatusBadRequest, http.StatusUnauthorized:
		terr, err := parseTokenError(body, ct)
		if err != nil {
			return withContext(err, ctxParseTokenError)
		}
		return f.recordTokenError(terr, status, ctxDeviceAuthzObtain)
	default:
		return &FlowError{Context: ctxDeviceAuthzObtain, Kind: KindProtocol, Detail: fmt.Sprintf("unexpected response code %d", status)}
	}
}

func (f *FlowContext) beginTokenRequest() error {
	pairs := []formPair{
		{key: "device_code", value: f.authz.DeviceCode},
		{key: "grant_type", value: grantTypeDeviceCode},
	}
	idPairs, auth, usedBasic := clientIdentification(f.clientID, f.clientSecret)
	pairs = append(pairs, idPairs...)
	f.usedBasicAuth = usedBasic
	body := buildForm(pairs...)
	return f.transport.Begin(f.ctx, http.MethodPost, f.provider.TokenEndpoint, formHeaders(), body, auth)
}

// handleTokenResponse returns (token, retry, err): retry means
// authorization_pending or slow_down, and the caller should re-arm the
// interval timer and try again.
func (f *FlowContext) handleTokenResponse() (string, bool, error) {
	status := f.transport.status()
	body, ct := f.transport.responseBody(), f.transport.contentType()
	switch status {
	case http.StatusOK:
		token, err := parseAccessToken(body, ct)
		if err != nil {
			return "", false, withContext(err, ctxParseAccessToken)
		}
		return token, false, nil
	case http.StatusBadRequest, http.StatusUnauthorized:
		terr, err := parseTokenError(body, ct)
		if err != nil {
			return "", false, withContext(err, ctxParseTokenError)
		}
		switch terr.Code {
		case errorCodeAuthorizationPending:
			return "", true, nil
		case errorCodeSlowDown:
			prev := f.authz.Interval
			f.authz.Interval += 5
			if f.authz.Interval < prev {
				return "", false, &FlowError{Context: ctxObtainToken, Kind: KindOverflow, Detail: "the provider's slow_down interval overflowed"}
			}
			return "", true, nil
		default:
			return "", false, f.recordTokenError(terr, status, ctxObtainToken)
		}
	default:
		return "", false, &FlowError{Context: ctxObtainToken, Kind: KindProtocol, Detail: fmt.Sprintf("unexpected response code %d", status)}
	}
}

func (f *FlowContext) recordTokenError(terr tokenError, status int, ctxPhrase string) error {
	var detail string
	switch {
	case terr.Description != "":
		detail = terr.Description + " "
	case status == http.StatusUnauthorized && f.usedBasicAuth:
		detail = "the provider rejected oauth_client_secret "
	case status == http.StatusUnauthorized:
		detail = "the provider requires client authentication, and no oauth_client_secret is set "
	}
	detail += fmt.Sprintf("(%s)", terr.Code)
	return &FlowError{Context: ctxPhrase, Kind: KindOAuthError, Detail: detail}
}
