package identity_test

import (
	"testing"
	"time"

	"github.com/opencertify/certledger/internal/identity"
)

const issuer = "http://localhost:3000"

func TestTokenRoundTrip(t *testing.T) {
	reg := identity.NewRegistry(identity.DefaultSigners())
	signer := reg.Default()
	issuerA := identity.NewTokenIssuer([]byte("test-secret"), issuer, time.Hour)

	tok, err := issuerA.Issue(signer)
	if err != nil {
		t.Fatal(err)
	}

	claims, err := issuerA.Verify(tok)
	if err != nil {
		t.Fatalf("verify freshly issued token: %v", err)
	}
	if claims.Subject != signer.Address {
		t.Errorf("subject = %q, want %q", claims.Subject, signer.Address)
	}
	if claims.Role != signer.Role {
		t.Errorf("role = %q, want %q", claims.Role, signer.Role)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	reg := identity.NewRegistry(identity.DefaultSigners())
	tok, err := identity.NewTokenIssuer([]byte("secret-a"), issuer, time.Hour).Issue(reg.Default())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := identity.NewTokenIssuer([]byte("secret-b"), issuer, time.Hour).Verify(tok); err == nil {
		t.Error("token verified under the wrong secret")
	}
}

func TestTokenExpired(t *testing.T) {
	reg := identity.NewRegistry(identity.DefaultSigners())
	tok, err := identity.NewTokenIssuer([]byte("test-secret"), issuer, -time.Minute).Issue(reg.Default())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := identity.NewTokenIssuer([]byte("test-secret"), issuer, time.Hour).Verify(tok); err == nil {
		t.Error("expired token verified")
	}
}

func TestTokenWrongIssuer(t *testing.T) {
	reg := identity.NewRegistry(identity.DefaultSigners())
	tok, err := identity.NewTokenIssuer([]byte("test-secret"), "http://other:3000", time.Hour).Issue(reg.Default())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := identity.NewTokenIssuer([]byte("test-secret"), issuer, time.Hour).Verify(tok); err == nil {
		t.Error("token verified under the wrong issuer")
	}
}

func TestRegistryLookup(t *testing.T) {
	reg := identity.NewRegistry(identity.DefaultSigners())

	s, ok := reg.Lookup("0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1")
	if !ok {
		t.Fatal("deployer address not found")
	}
	if s.Role != identity.RoleCertifier {
		t.Errorf("role = %q, want certifier", s.Role)
	}

	// Lookup is case-insensitive on the hex address.
	if _, ok := reg.Lookup("0x90f8bf6a479f320ead074411a4b0e7944ea8c9c1"); !ok {
		t.Error("lowercased address not found")
	}

	if _, ok := reg.Lookup("0x0000000000000000000000000000000000000000"); ok {
		t.Error("unknown address resolved to a signer")
	}
}

func TestRegistryIsCertifier(t *testing.T) {
	reg := identity.NewRegistry(identity.DefaultSigners())

	if !reg.IsCertifier("0xFFcf8FDEE72ac11b5c542428B35EEF5769C409f0") {
		t.Error("certifying body not recognised as certifier")
	}
	if reg.IsCertifier("0x22d491Bde2303f2f43325b2108D26f1eAbA1e32b") {
		t.Error("auditor recognised as certifier")
	}
	if reg.IsCertifier("0xDEAD") {
		t.Error("unknown address recognised as certifier")
	}
}
