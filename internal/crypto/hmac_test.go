package crypto

import "testing"

func TestWebhookAuthVerify(t *testing.T) {
	auth := &WebhookAuth{Secret: "topsecret"}
	body := []byte(`{"title":"Topic 1 settled"}`)

	headers := auth.HeadersAt(body, 1_700_000_000)
	ts := headers["X-Worth-Timestamp"]
	sig := headers["X-Worth-Signature"]
	if ts != "1700000000" {
		t.Errorf("timestamp header = %q, want 1700000000", ts)
	}

	if !auth.Verify(body, ts, sig) {
		t.Error("verify should accept a signature it produced")
	}
	if auth.Verify([]byte("other body"), ts, sig) {
		t.Error("verify should reject a different body")
	}
	if auth.Verify(body, "1700000001", sig) {
		t.Error("verify should reject a different timestamp")
	}

	other := &WebhookAuth{Secret: "wrong"}
	if other.Verify(body, ts, sig) {
		t.Error("verify should reject a signature made with a different secret")
	}
}

func TestWebhookAuthStringRedacts(t *testing.T) {
	auth := &WebhookAuth{Secret: "supersecretvalue"}
	s := auth.String()
	if s != "WebhookAuth{secret=supe****}" {
		t.Errorf("String() = %q, secret must be redacted", s)
	}
}
