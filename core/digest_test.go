package core

import "testing"

func TestSignVerifyRoundTrip(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}

	msg := []byte("Hello, Elena!")
	sig, err := kp.Sign(msg)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	ok, err := Verify(kp.Public, msg, sig)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatalf("expected signature to verify")
	}

	tampered := append([]byte(nil), sig...)
	tampered[0] ^= 0xFF
	ok, err = Verify(kp.Public, msg, tampered)
	if err != nil {
		t.Fatalf("verify tampered: %v", err)
	}
	if ok {
		t.Fatalf("expected tampered signature to fail verification")
	}
}

func TestDigestSumIs64Bytes(t *testing.T) {
	d := Sum([]byte("anything"))
	if len(d) != 64 {
		t.Fatalf("expected 64-byte digest, got %d", len(d))
	}
}

func TestKeypairSaveLoadRoundTrip(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	path := t.TempDir() + "/wallet.key"
	if err := SaveKeypair(path, kp); err != nil {
		t.Fatalf("save keypair: %v", err)
	}
	loaded, err := LoadKeypair(path)
	if err != nil {
		t.Fatalf("load keypair: %v", err)
	}
	if string(loaded.Public) != string(kp.Public) || string(loaded.Secret) != string(kp.Secret) {
		t.Fatalf("round-tripped keypair does not match original")
	}
}

func TestLoadOrCreateKeypairGeneratesOnFirstCall(t *testing.T) {
	path := t.TempDir() + "/wallets/default.key"
	kp1, err := LoadOrCreateKeypair(path)
	if err != nil {
		t.Fatalf("first load_or_create: %v", err)
	}
	kp2, err := LoadOrCreateKeypair(path)
	if err != nil {
		t.Fatalf("second load_or_create: %v", err)
	}
	if string(kp1.Public) != string(kp2.Public) {
		t.Fatalf("expected the same persisted keypair across calls")
	}
}
