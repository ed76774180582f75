package main

// Config holds the demo host's configuration, loaded from environment
// variables.
type Config struct {
	Port int `envconfig:"PORT" default:"8080"`

	DiscoveryURI string `envconfig:"OAUTH_DISCOVERY_URI" required:"true"`
	IssuerID     string `envconfig:"OAUTH_ISSUER_ID" required:"true"`
	ClientID     string `envconfig:"OAUTH_CLIENT_ID" required:"true"`
	ClientSecret string `envconfig:"OAUTH_CLIENT_SECRET" default:""`
	Scope        string `envconfig:"OAUTH_SCOPE" default:""`
}
