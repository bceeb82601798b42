package core

import "errors"

// Sentinel errors surfaced by the core. Callers should match with errors.Is;
// wrapping with fmt.Errorf("...: %w", err) is expected at call sites that add
// context (mirrors pkg/utils.Wrap).
var (
	// ErrCollisionDetected is returned by LocalGraph.AddTransaction when the
	// inbound transaction double-spends an anchor already seen from the same
	// sender.
	ErrCollisionDetected = errors.New("core: collision detected")

	// ErrInsufficientBalance is returned by Node.CreatePayment when the
	// sender's balance cannot cover amount+fee.
	ErrInsufficientBalance = errors.New("core: insufficient balance")

	// ErrInvalidSignature is returned when an inbound transaction fails
	// signature verification.
	ErrInvalidSignature = errors.New("core: invalid signature")

	// ErrInvalidKeyFormat is returned when key material cannot be decoded.
	ErrInvalidKeyFormat = errors.New("core: invalid key format")

	// ErrSignature wraps failures from the signing primitive itself.
	ErrSignature = errors.New("core: signature error")

	// ErrVerification wraps failures from the verification primitive itself
	// (distinct from a signature simply not matching).
	ErrVerification = errors.New("core: verification error")

	// ErrInvalidArgument is returned for malformed admin requests.
	ErrInvalidArgument = errors.New("core: invalid argument")

	// ErrIO wraps persistence failures. Save failures are logged and
	// swallowed by callers; load failures at start-up downgrade to defaults.
	ErrIO = errors.New("core: io error")

	// ErrUnknownCommand names an unrecognised admin request line. The admin
	// server does not return it; it answers such lines with an
	// "error: unknown command (...)" response string.
	ErrUnknownCommand = errors.New("core: unknown command")
)
