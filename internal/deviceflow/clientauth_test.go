package deviceflow

import "testing"

func TestClientIdentification(t *testing.T) {
	t.Run("no secret uses body parameter", func(t *testing.T) {
		pairs, auth, usedBasic := clientIdentification("my-client", nil)
		if usedBasic {
			t.Error("expected usedBasicAuth = false")
		}
		if auth != nil {
			t.Error("expected no basic auth credentials")
		}
		if len(pairs) != 1 || pairs[0].key != "client_id" || pairs[0].value != "my-client" {
			t.Errorf("pairs = %+v", pairs)
		}
	})

	t.Run("empty secret still selects basic auth", func(t *testing.T) {
		secret := ""
		pairs, auth, usedBasic := clientIdentification("my-client", &secret)
		if !usedBasic {
			t.Error("expected usedBasicAuth = true")
		}
		if auth == nil {
			t.Fatal("expected basic auth credentials")
		}
		if len(pairs) != 0 {
			t.Errorf("expected no body pairs, got %+v", pairs)
		}
		if auth.username != "my-client" || auth.password != "" {
			t.Errorf("auth = %+v", auth)
		}
	})

	t.Run("non-empty secret is urlencoded", func(t *testing.T) {
		secret := "sec ret"
		_, auth, _ := clientIdentification("cl ient", &secret)
		if auth.username != "cl+ient" || auth.password != "sec+ret" {
			t.Errorf("auth = %+v", auth)
		}
	})
}
