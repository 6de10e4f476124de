package crypto

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
)

// ErrKeyExists is returned when creating a key under a name already in use.
var ErrKeyExists = errors.New("crypto: key already exists")

const keyFileSuffix = ".json"

// Keystore stores named secp256k1 keys as Ethereum v3 keystore files inside a
// single directory.
type Keystore struct {
	dir     string
	scryptN int
	scryptP int
}

// NewKeystore opens (creating if needed) a keystore rooted at dir.
func NewKeystore(dir string) (*Keystore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("crypto: empty keystore directory")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &Keystore{dir: dir, scryptN: keystore.StandardScryptN, scryptP: keystore.StandardScryptP}, nil
}

// UseLightScrypt lowers the key derivation cost. Intended for tests and
// throwaway development keys.
func (ks *Keystore) UseLightScrypt() {
	ks.scryptN = keystore.LightScryptN
	ks.scryptP = keystore.LightScryptP
}

func (ks *Keystore) path(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || strings.ContainsAny(trimmed, `/\`) {
		return "", fmt.Errorf("crypto: invalid key name %q", name)
	}
	return filepath.Join(ks.dir, trimmed+keyFileSuffix), nil
}

// Create generates a fresh key, stores it under name and returns it.
func (ks *Keystore) Create(name, passphrase string) (*PrivateKey, error) {
	key, err := GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	if err := ks.Import(name, key, passphrase); err != nil {
		return nil, err
	}
	return key, nil
}

// Import stores an existing key under name. Existing names are never
// overwritten.
func (ks *Keystore) Import(name string, key *PrivateKey, passphrase string) error {
	if key == nil {
		return errors.New("crypto: nil private key")
	}
	dest, err := ks.path(name)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("%w: %s", ErrKeyExists, name)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	tmpDir, err := os.MkdirTemp(ks.dir, "import-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	store := keystore.NewKeyStore(tmpDir, ks.scryptN, ks.scryptP)
	if _, err := store.ImportECDSA(key.PrivateKey, passphrase); err != nil {
		return err
	}
	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return errors.New("crypto: failed to create keystore file")
	}
	if err := os.Rename(filepath.Join(tmpDir, entries[0].Name()), dest); err != nil {
		return err
	}
	return os.Chmod(dest, 0o600)
}

// Load decrypts the key stored under name.
func (ks *Keystore) Load(name, passphrase string) (*PrivateKey, error) {
	src, err := ks.path(name)
	if err != nil {
		return nil, err
	}
	keyJSON, err := os.ReadFile(src)
	if err != nil {
		return nil, err
	}
	decrypted, err := keystore.DecryptKey(keyJSON, passphrase)
	if err != nil {
		return nil, fmt.Errorf("crypto: decrypt %s: %w", name, err)
	}
	return &PrivateKey{PrivateKey: decrypted.PrivateKey}, nil
}

// Names lists the stored key names in lexical order.
func (ks *Keystore) Names() ([]string, error) {
	entries, err := os.ReadDir(ks.dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), keyFileSuffix) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), keyFileSuffix))
	}
	sort.Strings(names)
	return names, nil
}
