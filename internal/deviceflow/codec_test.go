package deviceflow

import "testing"

func TestUrlencodeUsesPlusForSpace(t *testing.T) {
	got := urlencode("openid profile")
	want := "openid+profile"
	if got != want {
		t.Errorf("urlencode() = %q, want %q", got, want)
	}
}

func TestBuildFormOrdersDeterministically(t *testing.T) {
	got := buildForm(
		formPair{key: "scope", value: "openid profile"},
		formPair{key: "client_id", value: "my-client"},
	)
	want := "scope=openid+profile&client_id=my-client"
	if got != want {
		t.Errorf("buildForm() = %q, want %q", got, want)
	}
}

func TestMatchContentType(t *testing.T) {
	tests := []struct {
		header string
		want   string
		match  bool
	}{
		{"application/json", "application/json", true},
		{"application/json; charset=utf-8", "application/json", true},
		{"APPLICATION/JSON", "application/json", true},
		{"application/jsonlines", "application/json", false},
		{"text/plain", "application/json", false},
		{"application/json\t;q=1", "application/json", true},
	}
	for _, tc := range tests {
		if got := matchContentType(tc.header, tc.want); got != tc.match {
			t.Errorf("matchContentType(%q, %q) = %v, want %v", tc.header, tc.want, got, tc.match)
		}
	}
}
