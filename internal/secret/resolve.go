// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

// Resolver turns an api_key_ref-style reference string into a secret
// [Buffer]. References use a scheme prefix:
//
//   - "env:NAME" — read from the environment variable NAME.
//   - "file:/path" — read the trimmed contents of a plaintext file
//     (delegates to [ReadFromPath]).
//   - "sealed:/path#key" — read a named entry from an encrypted
//     keystore file (see [Seal]), decrypted with the passphrase held
//     in JASPER_KEYSTORE_PASSPHRASE.
//   - any other string is treated as an inline literal value.
//
// Resolution is lazy: a reference is only resolved the first time it
// is requested, and the resulting Buffer is cached for the lifetime of
// the Resolver so a secret is decrypted at most once per process.
type Resolver struct {
	cache map[string]*Buffer
}

// NewResolver returns a Resolver with an empty cache.
func NewResolver() *Resolver {
	return &Resolver{cache: make(map[string]*Buffer)}
}

// Resolve returns the secret Buffer for ref, resolving and caching it
// on first use. The returned Buffer is owned by the Resolver; callers
// must not Close it. Close is called on every cached Buffer by
// [Resolver.Close].
func (r *Resolver) Resolve(ref string) (*Buffer, error) {
	if ref == "" {
		return nil, fmt.Errorf("secret: empty reference")
	}
	if cached, ok := r.cache[ref]; ok {
		return cached, nil
	}

	buffer, err := resolveOnce(ref)
	if err != nil {
		return nil, fmt.Errorf("secret: resolving %q: %w", redactRef(ref), err)
	}
	r.cache[ref] = buffer
	return buffer, nil
}

// Close releases every Buffer this Resolver has produced.
func (r *Resolver) Close() error {
	var firstError error
	for _, buffer := range r.cache {
		if err := buffer.Close(); err != nil && firstError == nil {
			firstError = err
		}
	}
	r.cache = make(map[string]*Buffer)
	return firstError
}

// redactRef returns ref with any inline literal value hidden, so error
// messages never leak a bare secret written directly into config.
func redactRef(ref string) string {
	switch {
	case strings.HasPrefix(ref, "env:"), strings.HasPrefix(ref, "file:"), strings.HasPrefix(ref, "sealed:"):
		return ref
	default:
		return "<inline>"
	}
}

func resolveOnce(ref string) (*Buffer, error) {
	switch {
	case strings.HasPrefix(ref, "env:"):
		name := strings.TrimPrefix(ref, "env:")
		value, ok := os.LookupEnv(name)
		if !ok {
			return nil, fmt.Errorf("environment variable %s is not set", name)
		}
		return NewFromBytes([]byte(value))

	case strings.HasPrefix(ref, "file:"):
		return ReadFromPath(strings.TrimPrefix(ref, "file:"))

	case strings.HasPrefix(ref, "sealed:"):
		return resolveSealed(strings.TrimPrefix(ref, "sealed:"))

	default:
		// Inline literal, as written in the config document.
		return NewFromBytes([]byte(ref))
	}
}

func resolveSealed(pathAndKey string) (*Buffer, error) {
	path, key, found := strings.Cut(pathAndKey, "#")
	if !found || path == "" || key == "" {
		return nil, fmt.Errorf(`sealed reference must be "path#key", got %q`, pathAndKey)
	}

	passphrase, ok := os.LookupEnv("JASPER_KEYSTORE_PASSPHRASE")
	if !ok {
		return nil, fmt.Errorf("JASPER_KEYSTORE_PASSPHRASE is not set")
	}

	entries, err := openKeystore(path, []byte(passphrase))
	if err != nil {
		return nil, err
	}
	defer func() {
		for name := range entries {
			plaintext := entries[name]
			for i := range plaintext {
				plaintext[i] = 0
			}
		}
	}()

	value, ok := entries[key]
	if !ok {
		return nil, fmt.Errorf("keystore %s has no entry %q", path, key)
	}
	return NewFromBytes(value)
}

// keystoreFile is the on-disk format written by Seal: a single
// ChaCha20-Poly1305 sealed box over a JSON object of name->value
// entries, keyed by a passphrase-derived key.
type keystoreFile struct {
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

func openKeystore(path string, passphrase []byte) (map[string][]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file keystoreFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing keystore %s: %w", path, err)
	}

	key := deriveKey(passphrase, file.Salt)
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("constructing cipher: %w", err)
	}

	plaintext, err := aead.Open(nil, file.Nonce, file.Ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypting keystore %s: wrong passphrase or corrupt file", path)
	}

	var entries map[string][]byte
	if err := json.Unmarshal(plaintext, &entries); err != nil {
		for i := range plaintext {
			plaintext[i] = 0
		}
		return nil, fmt.Errorf("parsing decrypted keystore: %w", err)
	}
	for i := range plaintext {
		plaintext[i] = 0
	}
	return entries, nil
}

// Seal writes a new encrypted keystore file at path holding entries,
// encrypted with a key derived from passphrase. The daemon only ever
// reads a sealed keystore through Resolve; nothing in this tree writes
// one yet, so Seal exists as the write-side counterpart to Resolve's
// "sealed:" scheme and is exercised directly by its tests.
func Seal(path string, passphrase []byte, entries map[string][]byte) error {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generating salt: %w", err)
	}
	key := deriveKey(passphrase, salt)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return fmt.Errorf("constructing cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generating nonce: %w", err)
	}

	plaintext, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling entries: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce, plaintext, nil)

	data, err := json.MarshalIndent(keystoreFile{Salt: salt, Nonce: nonce, Ciphertext: ciphertext}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling keystore file: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// deriveKey stretches a passphrase and salt into a chacha20poly1305 key
// via scrypt. Panics only on invalid parameters, which are fixed
// constants here and therefore never invalid.
func deriveKey(passphrase, salt []byte) []byte {
	key, err := scrypt.Key(passphrase, salt, 1<<15, 8, 1, chacha20poly1305.KeySize)
	if err != nil {
		panic(fmt.Sprintf("secret: scrypt key derivation: %v", err))
	}
	return key
}
