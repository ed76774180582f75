package deviceflow

import (
	"math"
	"strconv"
)

// parseProviderMetadata validates and extracts the RFC 8414 fields the
// engine needs from a discovery document.
func parseProviderMetadata(body []byte, contentType string) (ProviderMetadata, error) {
	var p ProviderMetadata
	var grantTypes []string
	fields := []jsonField{
		stringField("issuer", true, &p.Issuer),
		stringField("token_endpoint", true, &p.TokenEndpoint),
		stringField("device_authorization_endpoint", false, &p.DeviceAuthorizationEndpoint),
		arrayField("grant_types_supported", false, &grantTypes),
	}
	if err := parseJSON(body, contentType, fields); err != nil {
		return ProviderMetadata{}, err
	}
	if len(grantTypes) == 0 {
		// RFC 8414 section 2: if omitted, the default is
		// authorization_code and implicit. Device code support must
		// then be assumed absent.
		grantTypes = []string{"authorization_code", "implicit"}
	}
	p.GrantTypesSupported = grantTypes
	return p, nil
}

// parseDeviceAuthorization validates and extracts an RFC 8628 section
// 3.2 device authorization response.
func parseDeviceAuthorization(body []byte, contentType string, debug bool) (DeviceAuthorization, error) {
	var authz DeviceAuthorization
	var intervalRaw string
	uriFilled := new(bool)
	fields := []jsonField{
		stringField("device_code", true, &authz.DeviceCode),
		stringField("user_code", true, &authz.UserCode),
		aliasedStringField("verification_uri", true, &authz.VerificationURI, uriFilled),
		aliasedStringField("verification_url", true, &authz.VerificationURI, uriFilled),
		numberField("interval", false, &intervalRaw),
	}
	if err := parseJSON(body, contentType, fields); err != nil {
		return DeviceAuthorization{}, err
	}
	interval, err := parseInterval(intervalRaw, debug)
	if err != nil {
		return DeviceAuthorization{}, err
	}
	authz.Interval = interval
	return authz, nil
}

// parseInterval normalizes the (optional) interval member: it defaults
// to 5 seconds, is rounded up to the next whole second, and is clamped
// to a sane minimum (0 only in debug mode, otherwise 1) and to
// math.MaxInt32 so later arithmetic on it can't silently overflow.
func parseInterval(raw string, debug bool) (int32, error) {
	if raw == "" {
		return 5, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &FlowError{Kind: KindProtocol, Detail: "interval is not a valid number"}
	}
	f = math.Ceil(f)
	min := 1.0
	if debug {
		min = 0
	}
	if f < min {
		f = min
	}
	if f > math.MaxInt32 {
		f = math.MaxInt32
	}
	return int32(f), nil
}

// parseTokenError validates and extracts an RFC 6749 section 5.2 error
// response.
func parseTokenError(body []byte, contentType string) (tokenError, error) {
	var terr tokenError
	fields := []jsonField{
		stringField("error", true, &terr.Code),
		stringField("error_description", false, &terr.Description),
	}
	if err := parseJSON(body, contentType, fields); err != nil {
		return tokenError{}, err
	}
	return terr, nil
}

// parseAccessToken validates and extracts an RFC 6749 section 5.1
// successful token response.
func parseAccessToken(body []byte, contentType string) (string, error) {
	var accessToken, tokenType string
	fields := []jsonField{
		stringField("access_token", true, &accessToken),
		stringField("token_type", true, &tokenType),
	}
	if err := parseJSON(body, contentType, fields); err != nil {
		return "", err
	}
	return accessToken, nil
}
