package provider

import "testing"

func TestVerifySignature(t *testing.T) {
	raw := []byte(`{"refid":"abc","status":"success"}`)
	secret := "webhook-secret"
	sig := Signature(raw, secret)

	if !VerifySignature(raw, sig, secret) {
		t.Fatalf("valid signature rejected")
	}
	if !VerifySignature(raw, "sha256="+sig, secret) {
		t.Fatalf("prefixed signature rejected")
	}
	if !VerifySignature(raw, "  "+sig+"  ", secret) {
		t.Fatalf("whitespace-padded signature rejected")
	}
}

func TestVerifySignatureRejectsTampering(t *testing.T) {
	raw := []byte(`{"refid":"abc","status":"success"}`)
	secret := "webhook-secret"
	sig := Signature(raw, secret)

	tampered := []byte(`{"refid":"abc","status":"failed"}`)
	if VerifySignature(tampered, sig, secret) {
		t.Fatalf("tampered body accepted")
	}
	if VerifySignature(raw, sig, "other-secret") {
		t.Fatalf("wrong secret accepted")
	}
	if VerifySignature(raw, "", secret) {
		t.Fatalf("empty header accepted")
	}
	if VerifySignature(raw, "deadbeef", secret) {
		t.Fatalf("bogus signature accepted")
	}
}
