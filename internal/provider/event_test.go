package provider

import (
	"net/url"
	"testing"

	"stayhub/internal/domain"
)

func TestMapStatusVocabulary(t *testing.T) {
	cases := []struct {
		raw  string
		want Status
	}{
		{"success", StatusSuccess},
		{"SUCCESSFUL", StatusSuccess},
		{" Completed ", StatusSuccess},
		{"paid", StatusSuccess},
		{"failed", StatusFailed},
		{"DECLINED", StatusFailed},
		{"cancelled", StatusFailed},
		{"canceled", StatusFailed},
		{"pending", StatusPending},
		{"processing", StatusPending},
		{"", StatusPending},
		// unknown vocabulary must never move money
		{"weird_new_state", StatusPending},
	}
	for _, tc := range cases {
		if got := MapStatus(tc.raw); got != tc.want {
			t.Fatalf("MapStatus(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	if !StatusSuccess.Terminal() || !StatusFailed.Terminal() {
		t.Fatalf("success and failed must be terminal")
	}
	if StatusPending.Terminal() {
		t.Fatalf("pending must not be terminal")
	}
}

func TestParseWebhook(t *testing.T) {
	ev, err := ParseWebhook([]byte(`{"refid":"abc-123","status":"successful","amount":250,"transactionId":"tx-9"}`))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if ev.RefID != "abc-123" {
		t.Fatalf("refid = %q", ev.RefID)
	}
	if ev.Status != StatusSuccess || ev.RawStatus != "successful" {
		t.Fatalf("status = %s raw=%q", ev.Status, ev.RawStatus)
	}
	if ev.Amount != 25000 {
		t.Fatalf("amount = %d, want 25000 minor units", ev.Amount)
	}
	if ev.TransactionID != "tx-9" {
		t.Fatalf("transaction id = %q", ev.TransactionID)
	}
}

func TestParseWebhookReferenceFallback(t *testing.T) {
	ev, err := ParseWebhook([]byte(`{"reference":"ref-77","status":"failed"}`))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if ev.RefID != "ref-77" || ev.Status != StatusFailed {
		t.Fatalf("got refid=%q status=%s", ev.RefID, ev.Status)
	}
	if ev.Amount != 0 {
		t.Fatalf("missing amount should stay 0, got %d", ev.Amount)
	}
}

func TestParseWebhookRejectsMissingReference(t *testing.T) {
	_, err := ParseWebhook([]byte(`{"status":"success","amount":100}`))
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseWebhookRejectsMalformedBody(t *testing.T) {
	_, err := ParseWebhook([]byte(`{not json`))
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseRedirect(t *testing.T) {
	q := url.Values{"refid": {"abc-123"}, "status": {"cancelled"}}
	ev, err := ParseRedirect(q)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if ev.RefID != "abc-123" || ev.Status != StatusFailed {
		t.Fatalf("got refid=%q status=%s", ev.RefID, ev.Status)
	}

	if _, err := ParseRedirect(url.Values{"status": {"success"}}); !domain.IsValidation(err) {
		t.Fatalf("expected validation error without refid, got %v", err)
	}
}
