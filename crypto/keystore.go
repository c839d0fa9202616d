package crypto

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts/keystore"
)

// KeystoreScryptN and KeystoreScryptP set the scrypt cost of newly written
// keystore files.
var (
	KeystoreScryptN = keystore.StandardScryptN
	KeystoreScryptP = keystore.StandardScryptP
)

var (
	errNilKey        = errors.New("crypto: nil private key")
	errEmptyKeystore = errors.New("crypto: empty keystore path")
)

// SaveToKeystore encrypts key into an Ethereum v3 keystore file at path and
// returns the gig identity of the stored key. Parent directories are created
// with 0700 permissions and the file itself is written 0600.
func SaveToKeystore(path string, key *PrivateKey, passphrase string) (Address, error) {
	if key == nil {
		return Address{}, errNilKey
	}
	if path == "" {
		return Address{}, errEmptyKeystore
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Address{}, err
	}

	tmpDir, err := os.MkdirTemp(dir, "keystore-")
	if err != nil {
		return Address{}, err
	}
	defer os.RemoveAll(tmpDir)

	ks := keystore.NewKeyStore(tmpDir, KeystoreScryptN, KeystoreScryptP)
	if _, err := ks.ImportECDSA(key.PrivateKey, passphrase); err != nil {
		return Address{}, fmt.Errorf("crypto: import key: %w", err)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return Address{}, err
	}
	if len(entries) == 0 {
		return Address{}, errors.New("crypto: failed to create keystore file")
	}

	src := filepath.Join(tmpDir, entries[0].Name())
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Address{}, err
	}
	if err := os.Rename(src, path); err != nil {
		return Address{}, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return Address{}, err
	}
	return key.PubKey().Address(), nil
}

// LoadFromKeystore decrypts an Ethereum v3 keystore file using the supplied passphrase.
func LoadFromKeystore(path, passphrase string) (*PrivateKey, error) {
	if path == "" {
		return nil, errEmptyKeystore
	}

	keyJSON, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	decrypted, err := keystore.DecryptKey(keyJSON, passphrase)
	if err != nil {
		return nil, fmt.Errorf("crypto: decrypt keystore: %w", err)
	}

	return &PrivateKey{PrivateKey: decrypted.PrivateKey}, nil
}
