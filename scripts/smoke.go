//go:build ignore

// smoke.go runs an end-to-end pass against a running certledgerd: add a
// certificate, read it back, verify the digest, invalidate it, and confirm
// the conflict on a second invalidation.
//
// Run with: go run scripts/smoke.go [server-url]
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/opencertify/certledger/pkg/client"
)

const (
	certifier = "0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1"
	certID    = "SMOKE-0001"
)

func main() {
	server := "http://localhost:3000"
	if len(os.Args) > 1 {
		server = os.Args[1]
	}

	ctx := context.Background()
	cl := client.New(server, client.WithSigner(certifier))

	fmt.Printf("server: %s\n\n", server)

	step("add certificate", func() error {
		txHash, err := cl.Add(ctx, &client.AddCertificateRequest{
			CertificateID:    certID,
			ProductID:        "smoke-product",
			ManufacturerID:   "smoke-manufacturer",
			CertifyingBodyID: "smoke-body",
			IssueDate:        "2025-01-01",
			ExpiryDate:       "2026-01-01",
		})
		if err != nil {
			return err
		}
		fmt.Printf("  tx %s\n", txHash)
		return nil
	})

	step("read back and verify", func() error {
		cert, err := cl.Get(ctx, certID)
		if err != nil {
			return err
		}
		if !cert.IsValid {
			return fmt.Errorf("certificate not valid after add")
		}
		if cert.ProductID != "smoke-product" {
			return fmt.Errorf("productId = %q", cert.ProductID)
		}
		fmt.Printf("  digest %s\n", cert.OffchainDataHash)
		return nil
	})

	step("ledger history", func() error {
		commits, err := cl.History(ctx, certID)
		if err != nil {
			return err
		}
		if len(commits) == 0 {
			return fmt.Errorf("no commits recorded")
		}
		fmt.Printf("  %d commit(s), latest seq %d\n", len(commits), commits[len(commits)-1].Sequence)
		return nil
	})

	step("invalidate", func() error {
		_, err := cl.Invalidate(ctx, certID)
		return err
	})

	step("second invalidation conflicts", func() error {
		_, err := cl.Invalidate(ctx, certID)
		if !errors.Is(err, client.ErrAlreadyInvalid) {
			return fmt.Errorf("expected already-invalid, got %v", err)
		}
		fmt.Printf("  got expected error: %v\n", err)
		return nil
	})

	step("invalid certificate reads minimal", func() error {
		cert, err := cl.Get(ctx, certID)
		if err != nil {
			return err
		}
		if cert.IsValid {
			return fmt.Errorf("certificate still valid after invalidation")
		}
		return nil
	})

	fmt.Println("\nsmoke test passed")
}

func step(name string, fn func() error) {
	fmt.Printf("-- %s\n", name)
	if err := fn(); err != nil {
		fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", name, err)
		os.Exit(1)
	}
}
