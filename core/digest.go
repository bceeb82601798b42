package core

// digest.go holds a 64-byte cryptographic digest and a post-quantum
// sign/verify facade, plus key (de)serialization to disk.
//
// The digest function is BLAKE2b-512 (golang.org/x/crypto/blake2b); Sum512
// gives the full 64-byte output this package's identifiers need.
//
// The signature primitive is Dilithium3 (github.com/cloudflare/circl). The
// facade exposes three operations (GenerateKeypair, Sign, Verify) under names that
// match this repository's vocabulary rather than the primitive's own
// function names, since callers treat the scheme as swappable.

import (
	"crypto"
	crand "crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	mode3 "github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/blake2b"
)

// Digest is a fixed 64-byte cryptographic digest output.
type Digest [64]byte

// TxId, Anchor and AlertId are all Digest — every identifier in this system
// is a 64-byte digest.
type (
	TxId    = Digest
	Anchor  = Digest
	AlertId = Digest
)

// Sum computes the 64-byte BLAKE2b digest of data.
func Sum(data []byte) Digest {
	return Digest(blake2b.Sum512(data))
}

// String renders the digest as lowercase hex.
func (d Digest) String() string { return fmt.Sprintf("%x", d[:]) }

// IsZero reports whether d is the all-zero digest.
func (d Digest) IsZero() bool { return d == Digest{} }

// MarshalJSON encodes the digest as a hex string.
func (d Digest) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

// UnmarshalJSON decodes a hex string into the digest.
func (d *Digest) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if len(s) != 128 {
		return fmt.Errorf("%w: digest hex must be 128 chars, got %d", ErrInvalidKeyFormat, len(s))
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKeyFormat, err)
	}
	copy(d[:], raw)
	return nil
}

// BalanceAnchor derives the anchor fingerprint for a pre-spend balance:
// digest(balance_le_bytes).
func BalanceAnchor(balance uint64) Anchor {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], balance)
	return Sum(buf[:])
}

// PublicKey and SecretKey are opaque, variable-length key material. They are
// named types (rather than bare []byte) so methods can attach to them
// directly, even though structurally they are byte slices.
type PublicKey []byte
type SecretKey []byte

// Hex renders the key as lowercase hex.
func (k PublicKey) Hex() string { return fmt.Sprintf("%x", []byte(k)) }

// PeerID derives peer_id = digest(public_key). This intentionally differs
// from the raw public key bytes used as Transaction.From: the two are
// distinct concepts kept distinct throughout this codebase.
func (k PublicKey) PeerID() Digest { return Sum(k) }

// Keypair is a post-quantum (Dilithium3) signing keypair.
type Keypair struct {
	Public PublicKey
	Secret SecretKey
}

// GenerateKeypair creates a fresh Dilithium3 keypair.
func GenerateKeypair() (*Keypair, error) {
	pub, priv, err := mode3.GenerateKey(crand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: keygen: %v", ErrSignature, err)
	}
	return &Keypair{Public: PublicKey(pub.Bytes()), Secret: SecretKey(priv.Bytes())}, nil
}

// Sign produces a Dilithium3 signature over msg using the keypair's secret
// key. The message passed in is expected to already be the transaction's
// canonical byte encoding (see transaction.go); Sign itself performs no
// hashing of its own — it signs the raw message with crypto.Hash(0) (no
// prehash).
func (kp *Keypair) Sign(msg []byte) ([]byte, error) {
	var sk mode3.PrivateKey
	if err := sk.UnmarshalBinary(kp.Secret); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyFormat, err)
	}
	sig, err := sk.Sign(crand.Reader, msg, crypto.Hash(0))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignature, err)
	}
	return sig, nil
}

// Verify checks a Dilithium3 signature produced by Sign against pub and msg.
func Verify(pub PublicKey, msg, sig []byte) (bool, error) {
	var pk mode3.PublicKey
	if err := pk.UnmarshalBinary(pub); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidKeyFormat, err)
	}
	return mode3.Verify(&pk, msg, sig), nil
}

//---------------------------------------------------------------------
// Key (de)serialization to disk
//---------------------------------------------------------------------

// encodeKeyContainer builds the on-disk, opaque binary container for a keypair: a
// length-prefixed public key followed by a length-prefixed secret key. It
// is not encrypted or passphrase-protected; callers needing that should
// wrap the file at rest.
func encodeKeyContainer(kp *Keypair) []byte {
	buf := make([]byte, 0, 8+len(kp.Public)+len(kp.Secret))
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(kp.Public)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, kp.Public...)
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(kp.Secret)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, kp.Secret...)
	return buf
}

func decodeKeyContainer(buf []byte) (*Keypair, error) {
	if len(buf) < 4 {
		return nil, fmt.Errorf("%w: truncated key container", ErrInvalidKeyFormat)
	}
	pubLen := binary.LittleEndian.Uint32(buf[:4])
	buf = buf[4:]
	if uint32(len(buf)) < pubLen+4 {
		return nil, fmt.Errorf("%w: truncated key container", ErrInvalidKeyFormat)
	}
	pub := append([]byte(nil), buf[:pubLen]...)
	buf = buf[pubLen:]
	secLen := binary.LittleEndian.Uint32(buf[:4])
	buf = buf[4:]
	if uint32(len(buf)) < secLen {
		return nil, fmt.Errorf("%w: truncated key container", ErrInvalidKeyFormat)
	}
	sec := append([]byte(nil), buf[:secLen]...)
	return &Keypair{Public: PublicKey(pub), Secret: SecretKey(sec)}, nil
}

// SaveKeypair writes kp to path (data_dir/wallets/<name>.key) as an opaque
// binary container, creating parent directories as needed.
func SaveKeypair(path string, kp *Keypair) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("%w: mkdir: %v", ErrIO, err)
	}
	if err := os.WriteFile(path, encodeKeyContainer(kp), 0o600); err != nil {
		return fmt.Errorf("%w: write keypair: %v", ErrIO, err)
	}
	return nil
}

// LoadKeypair reads a keypair previously written by SaveKeypair.
func LoadKeypair(path string) (*Keypair, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read keypair: %v", ErrIO, err)
	}
	return decodeKeyContainer(buf)
}

// LoadOrCreateKeypair loads the keypair at path, generating and persisting a
// fresh one if the file does not exist.
func LoadOrCreateKeypair(path string) (*Keypair, error) {
	if _, err := os.Stat(path); err == nil {
		return LoadKeypair(path)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: stat keypair: %v", ErrIO, err)
	}
	kp, err := GenerateKeypair()
	if err != nil {
		return nil, err
	}
	if err := SaveKeypair(path, kp); err != nil {
		return nil, err
	}
	return kp, nil
}
