package main

import (
	"testing"
	"time"

	"github.com/engindearing-projects/omniTAK-sub001/internal/config"
	"github.com/engindearing-projects/omniTAK-sub001/internal/pool"
)

func TestEgressPolicyMapsNames(t *testing.T) {
	cases := map[string]pool.BackpressureKind{
		"drop_oldest":  pool.DropOldest,
		"block":        pool.BlockWithTimeout,
		"drop_on_full": pool.DropOnFull,
		"":             pool.DropOnFull,
		"bogus":        pool.DropOnFull,
	}
	for name, want := range cases {
		if got := egressPolicy(name).Kind; got != want {
			t.Fatalf("egressPolicy(%q).Kind = %v, want %v", name, got, want)
		}
	}
}

func TestIngressPolicyAppliesConfiguredTimeout(t *testing.T) {
	cfg := config.PoolConfig{IngressPolicy: "block", IngressTimeout: 2 * time.Second}
	p := ingressPolicy(cfg)
	if p.Kind != pool.BlockWithTimeout {
		t.Fatalf("expected BlockWithTimeout, got %v", p.Kind)
	}
	if p.Timeout != 2*time.Second {
		t.Fatalf("expected configured timeout to be applied, got %v", p.Timeout)
	}
}

func TestBuildClientRejectsUnknownVariant(t *testing.T) {
	creds := newFileCredentialProvider()
	_, _, err := buildClient(config.ConnectionSpec{ID: "x", Host: "h", Port: 1, Variant: "carrier-pigeon"}, creds, nil)
	if err == nil {
		t.Fatal("expected error for unknown variant")
	}
}

func TestBuildClientRejectsMismatchedTLSServerName(t *testing.T) {
	creds := newFileCredentialProvider()
	_, _, err := buildClient(config.ConnectionSpec{
		ID: "x", Host: "10.0.0.1", Port: 8089, Variant: "tls", ServerName: "tak.example.com",
	}, creds, nil)
	if err == nil {
		t.Fatal("expected error for mismatched server_name")
	}
}
