// Package keystore implements the auth.KeyLookup interface. This implements
// an in-memory keystore for JWT support.
package keystore

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
	"sync"
)

type key struct {
	privatePEM string
	publicPEM  string
}

// KeyStore represents an in memory store implementation of the
// KeyLookup interface for use with the auth package.
type KeyStore struct {
	mu    sync.RWMutex
	store map[string]key
}

// New constructs an empty KeyStore ready for use.
func New() *KeyStore {
	return &KeyStore{
		store: make(map[string]key),
	}
}

// LoadByFileSystem loads a set of RSA PEM files rooted inside of a file system.
// The name of each file, without its extension, becomes the kid.
func (ks *KeyStore) LoadByFileSystem(fsys fs.FS) (int, error) {
	fn := func(fileName string, dirEntry fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if dirEntry.IsDir() {
			return nil
		}

		if path.Ext(fileName) != ".pem" {
			return nil
		}

		file, err := fsys.Open(fileName)
		if err != nil {
			return fmt.Errorf("opening key file: %w", err)
		}
		defer file.Close()

		// limit PEM file size to 1 megabyte.
		data, err := io.ReadAll(io.LimitReader(file, 1024*1024))
		if err != nil {
			return fmt.Errorf("reading auth private key: %w", err)
		}

		privatePEM := string(data)
		publicPEM, err := toPublicPEM(privatePEM)
		if err != nil {
			return fmt.Errorf("converting private PEM to public: %w", err)
		}

		kid := strings.TrimSuffix(dirEntry.Name(), ".pem")

		ks.mu.Lock()
		ks.store[kid] = key{privatePEM: privatePEM, publicPEM: publicPEM}
		ks.mu.Unlock()

		return nil
	}

	if err := fs.WalkDir(fsys, ".", fn); err != nil {
		return 0, fmt.Errorf("walking directory: %w", err)
	}

	ks.mu.RLock()
	defer ks.mu.RUnlock()

	return len(ks.store), nil
}

// Add stores the private key under the given kid.
func (ks *KeyStore) Add(kid string, pk *rsa.PrivateKey) error {
	privatePEM := string(pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(pk),
	}))

	publicPEM, err := encodePublic(&pk.PublicKey)
	if err != nil {
		return err
	}

	ks.mu.Lock()
	defer ks.mu.Unlock()

	ks.store[kid] = key{privatePEM: privatePEM, publicPEM: publicPEM}

	return nil
}

// PrivateKey searches the key store for a given kid and returns the private key.
func (ks *KeyStore) PrivateKey(kid string) (string, error) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	k, found := ks.store[kid]
	if !found {
		return "", errors.New("kid lookup failed")
	}

	return k.privatePEM, nil
}

// PublicKey searches the key store for a given kid and returns the public key.
func (ks *KeyStore) PublicKey(kid string) (string, error) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	k, found := ks.store[kid]
	if !found {
		return "", errors.New("kid lookup failed")
	}

	return k.publicPEM, nil
}

// =============================================================================

func toPublicPEM(privatePEM string) (string, error) {
	block, _ := pem.Decode([]byte(privatePEM))
	if block == nil {
		return "", errors.New("invalid key: key must be PEM encoded")
	}

	var pk *rsa.PrivateKey

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	switch err {
	case nil:
		rsaKey, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return "", errors.New("key is not a valid RSA private key")
		}
		pk = rsaKey

	default:
		pk, err = x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return "", fmt.Errorf("parsing private key: %w", err)
		}
	}

	return encodePublic(&pk.PublicKey)
}

func encodePublic(pub *rsa.PublicKey) (string, error) {
	asn1Bytes, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("marshaling public key: %w", err)
	}

	var b strings.Builder
	if err := pem.Encode(&b, &pem.Block{Type: "PUBLIC KEY", Bytes: asn1Bytes}); err != nil {
		return "", fmt.Errorf("encoding to public PEM: %w", err)
	}

	return b.String(), nil
}
