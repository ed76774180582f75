// Package pgoauthdevice implements a non-blocking OAuth 2.0 Device
// Authorization Grant (RFC 8628) client, layered on OpenID Connect
// Discovery / RFC 8414 provider metadata, for embedding in a database
// client library's connection state machine.
//
// A host owns one Conn per connection and drives it to completion with
// Poll:
//
//	conn := &pgoauthdevice.Conn{
//		DiscoveryURI: "https://idp.example/.well-known/openid-configuration",
//		IssuerID:     "https://idp.example",
//		ClientID:     "my-database-client",
//	}
//	for {
//		switch pgoauthdevice.Poll(conn) {
//		case pgoauthdevice.Ok:
//			return conn.Token, nil
//		case pgoauthdevice.Failed:
//			return "", errors.New(conn.ErrorMessage)
//		case pgoauthdevice.Reading:
//			waitReadable(conn.Altsock)
//		}
//	}
//
// Poll never blocks the calling thread. When it returns Reading, the
// host must wait for conn.Altsock to become readable (or its armed
// interval timer to fire) before calling Poll again.
package pgoauthdevice
