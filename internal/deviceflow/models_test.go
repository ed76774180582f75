package deviceflow

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseProviderMetadataStruct(t *testing.T) {
	body := `{"issuer":"https://idp.example","token_endpoint":"https://idp.example/token",` +
		`"device_authorization_endpoint":"https://idp.example/device",` +
		`"grant_types_supported":["authorization_code","urn:ietf:params:oauth:grant-type:device_code"]}`

	got, err := parseProviderMetadata([]byte(body), "application/json")
	if err != nil {
		t.Fatalf("parseProviderMetadata() error = %v", err)
	}

	want := ProviderMetadata{
		Issuer:                      "https://idp.example",
		TokenEndpoint:               "https://idp.example/token",
		DeviceAuthorizationEndpoint: "https://idp.example/device",
		GrantTypesSupported:         []string{"authorization_code", "urn:ietf:params:oauth:grant-type:device_code"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseProviderMetadata() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseProviderMetadataDefaultsGrantTypes(t *testing.T) {
	body := `{"issuer":"https://idp.example","token_endpoint":"https://idp.example/token"}`

	got, err := parseProviderMetadata([]byte(body), "application/json")
	if err != nil {
		t.Fatalf("parseProviderMetadata() error = %v", err)
	}

	want := ProviderMetadata{
		Issuer:              "https://idp.example",
		TokenEndpoint:       "https://idp.example/token",
		GrantTypesSupported: []string{"authorization_code", "implicit"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseProviderMetadata() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDeviceAuthorizationStruct(t *testing.T) {
	body := `{"device_code":"d","user_code":"ABCD-EFGH","verification_uri":"https://idp.example/device","interval":7}`

	got, err := parseDeviceAuthorization([]byte(body), "application/json", false)
	if err != nil {
		t.Fatalf("parseDeviceAuthorization() error = %v", err)
	}

	want := DeviceAuthorization{
		DeviceCode:      "d",
		UserCode:        "ABCD-EFGH",
		VerificationURI: "https://idp.example/device",
		Interval:        7,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseDeviceAuthorization() mismatch (-want +got):\n%s", diff)
	}
}
