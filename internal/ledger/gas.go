package ledger

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// Gas cost model for the simulated chain. The constants mirror the usual
// EVM intuition (base transaction cost, per-byte calldata cost, one storage
// write) closely enough that estimates vary with input size the way a real
// estimateGas call would.
const (
	gasTxBase     = 21_000
	gasPerByte    = 68
	gasStoreWrite = 20_000

	// gasMarginPercent is the fixed safety margin applied to every estimate
	// before submission.
	gasMarginPercent = 20
)

// estimateCommitGas models the execution cost of a commit or invalidate call.
func estimateCommitGas(id, digest string) int64 {
	return gasTxBase + int64(len(id)+len(digest))*gasPerByte + gasStoreWrite
}

// withGasMargin applies the fixed safety margin to an estimate. The result is
// the gas budget the transaction is submitted with.
func withGasMargin(estimate int64) int64 {
	return estimate + estimate*gasMarginPercent/100
}

// txHash derives the transaction hash for a commit. Keccak-256 keeps the
// hashes shaped like the ledger network's own transaction hashes, which the
// HTTP surface exposes verbatim as proof-of-commit.
func txHash(seq int64, signer, id, digest string, isValid bool, nonce string) string {
	h := sha3.NewLegacyKeccak256()
	fmt.Fprintf(h, "%d|%s|%s|%s|%t|%s", seq, signer, id, digest, isValid, nonce)
	return "0x" + hex.EncodeToString(h.Sum(nil))
}
