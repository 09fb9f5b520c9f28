package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"stayhub/internal/domain"
)

func TestWholeUnits(t *testing.T) {
	cases := []struct {
		minor   int64
		want    int64
		wantErr bool
	}{
		{10000, 100, false},
		{100, 1, false},
		{12345, 0, true}, // fractional subunits cannot be transmitted
		{0, 0, true},
		{-500, 0, true},
	}
	for _, tc := range cases {
		got, err := WholeUnits(tc.minor)
		if tc.wantErr {
			if !domain.IsValidation(err) {
				t.Fatalf("WholeUnits(%d): expected validation error, got %v", tc.minor, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("WholeUnits(%d): %v", tc.minor, err)
		}
		if got != tc.want {
			t.Fatalf("WholeUnits(%d) = %d, want %d", tc.minor, got, tc.want)
		}
	}
}

func TestClientCollect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key-1" {
			t.Errorf("authorization header = %q", got)
		}
		w.Write([]byte(`{"refid":"prov-1","status":"pending"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key-1")
	resp, err := c.Collect(context.Background(), CollectionRequest{Reference: "ref-1", Amount: 50000, Payer: "p"})
	if err != nil {
		t.Fatalf("collect error: %v", err)
	}
	if resp.RefID != "prov-1" || resp.Status != StatusPending {
		t.Fatalf("got %+v", resp)
	}
}

func TestClientDoesNotRetryRejections(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad amount", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.Payout(context.Background(), PayoutRequest{Reference: "ref-1", Amount: 50000})
	if !domain.IsProvider(err) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("4xx retried: %d calls, want 1", got)
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"refid":"tx-1","status":"successful","amount":500}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	c.MaxRetries = 2
	resp, err := c.Status(context.Background(), "tx-1")
	if err != nil {
		t.Fatalf("status error: %v", err)
	}
	if resp.Status != StatusSuccess {
		t.Fatalf("status = %s", resp.Status)
	}
	if resp.Amount != 50000 {
		t.Fatalf("amount = %d, want 50000 minor units", resp.Amount)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("calls = %d, want 2", got)
	}
}

func TestClientSurfacesExhaustedRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	c.MaxRetries = 2
	_, err := c.Status(context.Background(), "tx-1")
	if !domain.IsProvider(err) {
		t.Fatalf("expected provider error after retries, got %v", err)
	}
}
