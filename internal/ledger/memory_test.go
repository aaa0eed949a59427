package ledger_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/opencertify/certledger/internal/identity"
	"github.com/opencertify/certledger/internal/ledger"
)

var ctx = context.Background()

const (
	certifierAddr = "0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1"
	auditorAddr   = "0x22d491Bde2303f2f43325b2108D26f1eAbA1e32b"
	digest        = "0x6b86b273ff34fce19d6b804eff5a3f5747ada4eaa22f1d49c01e52ddb7875b4b"
)

func newLedger() *ledger.MemoryLedger {
	return ledger.NewMemory(identity.NewRegistry(identity.DefaultSigners()))
}

func TestCommit_thenFetch(t *testing.T) {
	l := newLedger()

	receipt, err := l.CommitCertificate(ctx, certifierAddr, "CERT-1", digest, true)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(receipt.TxHash, "0x") {
		t.Errorf("tx hash %q missing 0x prefix", receipt.TxHash)
	}

	com, err := l.FetchCommitment(ctx, "CERT-1")
	if err != nil {
		t.Fatal(err)
	}
	if com.Absent() {
		t.Fatal("commitment reported absent after commit")
	}
	if com.OffchainDataHash != digest {
		t.Errorf("digest: got %q, want %q", com.OffchainDataHash, digest)
	}
	if !com.IsValid {
		t.Error("commitment not valid after commit")
	}
}

func TestFetchCommitment_absentIsSentinel(t *testing.T) {
	l := newLedger()

	com, err := l.FetchCommitment(ctx, "nonexistent")
	if err != nil {
		t.Fatalf("absent commitment must not error: %v", err)
	}
	if !com.Absent() {
		t.Error("unknown certificate should report the sentinel digest")
	}
	if com.OffchainDataHash != ledger.SentinelDigest {
		t.Errorf("digest: got %q, want sentinel", com.OffchainDataHash)
	}
}

func TestCommit_gasMargin(t *testing.T) {
	l := newLedger()

	receipt, err := l.CommitCertificate(ctx, certifierAddr, "CERT-1", digest, true)
	if err != nil {
		t.Fatal(err)
	}
	if receipt.GasUsed <= 0 {
		t.Fatalf("gas used = %d, want > 0", receipt.GasUsed)
	}
	want := receipt.GasUsed + receipt.GasUsed*20/100
	if receipt.GasLimit != want {
		t.Errorf("gas limit = %d, want estimate + 20%% margin = %d", receipt.GasLimit, want)
	}
}

func TestCommit_notAuthorized(t *testing.T) {
	l := newLedger()

	for _, signer := range []string{auditorAddr, "0xDEAD"} {
		_, err := l.CommitCertificate(ctx, signer, "CERT-1", digest, true)
		var rej *ledger.RejectedError
		if !errors.As(err, &rej) {
			t.Fatalf("signer %s: expected RejectedError, got %v", signer, err)
		}
		if rej.Reason != ledger.ReasonNotAuthorized {
			t.Errorf("signer %s: reason = %q, want not_authorized", signer, rej.Reason)
		}
	}

	if h, _ := l.Height(ctx); h != 0 {
		t.Errorf("rejected commits must not change state, height = %d", h)
	}
}

func TestInvalidate_flow(t *testing.T) {
	l := newLedger()

	if _, err := l.CommitCertificate(ctx, certifierAddr, "CERT-1", digest, true); err != nil {
		t.Fatal(err)
	}
	if _, err := l.InvalidateCertificate(ctx, certifierAddr, "CERT-1"); err != nil {
		t.Fatal(err)
	}

	com, err := l.FetchCommitment(ctx, "CERT-1")
	if err != nil {
		t.Fatal(err)
	}
	if com.IsValid {
		t.Error("commitment still valid after invalidation")
	}
	if com.OffchainDataHash != digest {
		t.Error("invalidation must preserve the committed digest")
	}
}

func TestInvalidate_unknownCertificate(t *testing.T) {
	l := newLedger()

	_, err := l.InvalidateCertificate(ctx, certifierAddr, "nonexistent")
	var rej *ledger.RejectedError
	if !errors.As(err, &rej) {
		t.Fatalf("expected RejectedError, got %v", err)
	}
	if rej.Reason != ledger.ReasonUnknownCertificate {
		t.Errorf("reason = %q, want unknown_certificate", rej.Reason)
	}
}

func TestInvalidate_twice(t *testing.T) {
	l := newLedger()

	_, _ = l.CommitCertificate(ctx, certifierAddr, "CERT-1", digest, true)
	if _, err := l.InvalidateCertificate(ctx, certifierAddr, "CERT-1"); err != nil {
		t.Fatal(err)
	}

	_, err := l.InvalidateCertificate(ctx, certifierAddr, "CERT-1")
	var rej *ledger.RejectedError
	if !errors.As(err, &rej) {
		t.Fatalf("expected RejectedError, got %v", err)
	}
	if rej.Reason != ledger.ReasonAlreadyInvalid {
		t.Errorf("reason = %q, want already_invalid", rej.Reason)
	}
}

func TestHistory_appendOnly(t *testing.T) {
	l := newLedger()

	_, _ = l.CommitCertificate(ctx, certifierAddr, "CERT-1", digest, true)
	_, _ = l.CommitCertificate(ctx, certifierAddr, "CERT-2", digest, true)
	_, _ = l.CommitCertificate(ctx, certifierAddr, "CERT-1", digest, true)
	_, _ = l.InvalidateCertificate(ctx, certifierAddr, "CERT-1")

	commits, err := l.History(ctx, "CERT-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(commits) != 3 {
		t.Fatalf("history length = %d, want 3", len(commits))
	}
	for i := 1; i < len(commits); i++ {
		if commits[i].Sequence <= commits[i-1].Sequence {
			t.Error("history not in ascending sequence order")
		}
	}
	if commits[2].IsValid {
		t.Error("final history entry should record the invalidation")
	}

	if h, _ := l.Height(ctx); h != 4 {
		t.Errorf("height = %d, want 4", h)
	}
}

func TestCommit_distinctTxHashes(t *testing.T) {
	l := newLedger()

	r1, _ := l.CommitCertificate(ctx, certifierAddr, "CERT-1", digest, true)
	r2, _ := l.CommitCertificate(ctx, certifierAddr, "CERT-1", digest, true)
	if r1.TxHash == r2.TxHash {
		t.Error("identical re-commit produced a duplicate tx hash")
	}
}
