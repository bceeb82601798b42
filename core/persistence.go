package core

// persistence.go covers the remaining C7/§4.6 persistence surface not
// already handled by graph.go (snapshot) and digest.go (keypair container):
// the staking fraction, a scalar JSON file under data_dir/stake.json.

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// LoadStake reads the stake fraction from path, defaulting to 0.0 if the
// file does not exist.
func LoadStake(path string) (float64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0.0, nil
		}
		return 0, fmt.Errorf("%w: read stake: %v", ErrIO, err)
	}
	var s float64
	if err := json.Unmarshal(b, &s); err != nil {
		return 0, fmt.Errorf("%w: unmarshal stake: %v", ErrIO, err)
	}
	return ClampStake(s), nil
}

// SaveStake persists the stake fraction to path as a JSON scalar.
func SaveStake(path string, stake float64) error {
	b, err := json.Marshal(ClampStake(stake))
	if err != nil {
		return fmt.Errorf("%w: marshal stake: %v", ErrIO, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("%w: mkdir: %v", ErrIO, err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("%w: write stake: %v", ErrIO, err)
	}
	return nil
}

// GraphPath, StakePath and KeyPath return the standard on-disk layout for a
// node rooted at dataDir.
func GraphPath(dataDir string) string { return filepath.Join(dataDir, "graph.json") }
func StakePath(dataDir string) string { return filepath.Join(dataDir, "stake.json") }
func KeyPath(dataDir, wallet string) string {
	return filepath.Join(dataDir, "wallets", wallet+".key")
}
