package deviceflow

// basicAuth carries pre-urlencoded HTTP Basic credentials, per RFC
// 6749 section 2.3.1: the username and password are individually
// urlencoded before being combined and base64-encoded, so the
// transport must not re-encode them.
type basicAuth struct {
	username string
	password string
}

// clientIdentification chooses how the client identifies itself on a
// device-authorization or token request: HTTP Basic auth whenever a
// client secret is configured (even an empty one — its presence, not
// its length, is what matters), or a client_id body parameter
// otherwise. This mirrors RFC 6749 section 2.3: a confidential client
// authenticates; a public client just declares its identity.
func clientIdentification(clientID string, secret *string) (pairs []formPair, auth *basicAuth, usedBasicAuth bool) {
	if secret != nil {
		return nil, &basicAuth{username: urlencode(clientID), password: urlencode(*secret)}, true
	}
	return []formPair{{key: "client_id", value: clientID}}, nil, false
}
