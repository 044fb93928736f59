package stripe

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/eventhub-backend/pkg/config"
)

func TestNewClientValidatesKeys(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name string
		cfg  config.StripeConfig
		ok   bool
	}{
		{name: "missing key", cfg: config.StripeConfig{Secret: "whsec_1"}},
		{name: "missing secret", cfg: config.StripeConfig{APIKey: "sk_test_1"}},
		{name: "live key in test env", cfg: config.StripeConfig{APIKey: "sk_live_1", Secret: "whsec_1"}},
		{name: "unknown env", cfg: config.StripeConfig{APIKey: "sk_test_1", Secret: "whsec_1", Env: "staging"}},
		{name: "valid test", cfg: config.StripeConfig{APIKey: "sk_test_1", Secret: "whsec_1"}, ok: true},
		{name: "valid live", cfg: config.StripeConfig{APIKey: "rk_live_1", Secret: "whsec_1", Env: "LIVE"}, ok: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewClient(ctx, tc.cfg, nil)
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestClientCheckoutSettings(t *testing.T) {
	client, err := NewClient(context.Background(), config.StripeConfig{
		APIKey:     "sk_test_1",
		Secret:     "whsec_1",
		Currency:   "USD",
		SessionTTL: time.Hour,
	}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client.Currency() != "usd" {
		t.Fatalf("expected usd, got %q", client.Currency())
	}
	if client.SessionTTL() != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", client.SessionTTL())
	}
	if client.SigningSecret() != "whsec_1" || client.Environment() != "test" {
		t.Fatalf("unexpected client metadata")
	}

	var nilClient *Client
	if nilClient.Currency() != config.DefaultCurrency || nilClient.SessionTTL() != config.MinCheckoutSessionTTL {
		t.Fatal("nil client should fall back to defaults")
	}
}
