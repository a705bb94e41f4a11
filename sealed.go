package filebox

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"
)

const (
	sealedSaltSize   = 16
	sealedIterations = 210000
)

// errSealedTruncated means the payload is shorter than the fixed salt,
// nonce and tag framing, so there is nothing to decrypt.
var errSealedTruncated = errors.New("sealed payload truncated")

// Sealed wraps another [Codec] so the bytes that reach the file are
// encrypted with XChaCha20-Poly1305 under a key derived from passphrase
// with PBKDF2-SHA256. A fresh salt and nonce are drawn on every encode, so
// sealing the same value twice produces different bytes. Decoding with the
// wrong passphrase, or decoding bytes modified on disk, fails
// authentication.
//
// The payload layout is salt, nonce, then ciphertext with the tag appended.
func Sealed[T any](inner Codec[T], passphrase string) Codec[T] {
	return sealedCodec[T]{inner: inner, passphrase: []byte(passphrase)}
}

type sealedCodec[T any] struct {
	inner      Codec[T]
	passphrase []byte
}

func (c sealedCodec[T]) Encode(value T) ([]byte, error) {
	plain, err := c.inner.Encode(value)
	if err != nil {
		return nil, err
	}
	salt := make([]byte, sealedSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	aead, err := c.aead(salt)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	out := make([]byte, 0, len(salt)+len(nonce)+len(plain)+aead.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plain, nil), nil
}

func (c sealedCodec[T]) Decode(data []byte) (T, error) {
	var zero T
	if len(data) < sealedSaltSize+chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return zero, errSealedTruncated
	}
	salt := data[:sealedSaltSize]
	nonce := data[sealedSaltSize : sealedSaltSize+chacha20poly1305.NonceSizeX]
	sealed := data[sealedSaltSize+chacha20poly1305.NonceSizeX:]
	aead, err := c.aead(salt)
	if err != nil {
		return zero, err
	}
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return zero, fmt.Errorf("failed to unseal: %w", err)
	}
	return c.inner.Decode(plain)
}

func (c sealedCodec[T]) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(c.passphrase, salt, sealedIterations, chacha20poly1305.KeySize, sha256.New)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}
	return aead, nil
}
