package stark

import "github.com/vybium/vybium-stark/internal/stark/verifier"

// ErrorKind enumerates every way proof verification can fail.
type ErrorKind = verifier.ErrorKind

// Error is the structured failure type returned by Verify: a Code
// identifying which check failed, a human-readable Message, and an
// optional wrapped Cause.
type Error = verifier.Error

// Verification failure codes.
const (
	InvalidTraceLength          = verifier.InvalidTraceLength
	RootUnavailable             = verifier.RootUnavailable
	InvalidPoW                  = verifier.InvalidPoW
	InvalidLdeCommitment        = verifier.InvalidLdeCommitment
	InvalidConstraintCommitment = verifier.InvalidConstraintCommitment
	InvalidFriCommitment        = verifier.InvalidFriCommitment
	OodsMismatch                = verifier.OodsMismatch
	OodsCalculationFailure      = verifier.OodsCalculationFailure
	FriCalculationFailure       = verifier.FriCalculationFailure
	ProofTooLong                = verifier.ProofTooLong
	HashMapFailure              = verifier.HashMapFailure
	InverseOfZero               = verifier.InverseOfZero
	NoSquareRoot                = verifier.NoSquareRoot
	NoRootOfUnity               = verifier.NoRootOfUnity
)

// ErrProofTooLong is the sentinel exposed for errors.Is callers checking
// whether a proof carried unconsumed trailing bytes.
var ErrProofTooLong = verifier.ErrProofTooLong
