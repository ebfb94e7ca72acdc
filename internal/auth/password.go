// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package auth is the identity boundary: argon2id credentials in the
// identities collection, role records in the users collection, and the
// HTTP session that remembers who is signed in.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrMalformedHash is returned for a stored credential that is not an
// encoded argon2id hash.
var ErrMalformedHash = errors.New("malformed password hash")

// Cost settings for new identity hashes (OWASP second choice, m=19456 t=2 p=1).
const (
	hashMemory  = 19 * 1024
	hashTime    = 2
	hashThreads = 1
	hashKeyLen  = 32
	hashSaltLen = 16
)

var b64 = base64.RawStdEncoding

// storedHash is a decoded "$argon2id$v=19$m=...,t=...,p=...$salt$key" value.
type storedHash struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

func (h storedHash) String() string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.memory, h.time, h.threads, b64.EncodeToString(h.salt), b64.EncodeToString(h.key))
}

// current reports whether h was made with today's cost settings.
func (h storedHash) current() bool {
	return h.memory == hashMemory && h.time == hashTime && h.threads == hashThreads
}

func decodeHash(encoded string) (storedHash, error) {
	var h storedHash

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return h, ErrMalformedHash
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return h, fmt.Errorf("%w: version %q", ErrMalformedHash, parts[2])
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &h.memory, &h.time, &h.threads); err != nil {
		return h, fmt.Errorf("%w: parameters %q", ErrMalformedHash, parts[3])
	}

	var err error
	if h.salt, err = b64.DecodeString(parts[4]); err != nil {
		return h, fmt.Errorf("%w: salt: %v", ErrMalformedHash, err)
	}
	if h.key, err = b64.DecodeString(parts[5]); err != nil || len(h.key) == 0 {
		return h, fmt.Errorf("%w: key", ErrMalformedHash)
	}
	return h, nil
}

// HashPassword returns the encoded argon2id hash stored on an identity.
func HashPassword(password string) (string, error) {
	salt := make([]byte, hashSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	h := storedHash{memory: hashMemory, time: hashTime, threads: hashThreads, salt: salt}
	h.key = argon2.IDKey([]byte(password), salt, h.time, h.memory, h.threads, hashKeyLen)
	return h.String(), nil
}

// CheckPassword reports whether password matches the encoded hash, using
// the cost settings recorded in the hash. Keys are compared in constant time.
func CheckPassword(password, encoded string) (bool, error) {
	h, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}
	key := argon2.IDKey([]byte(password), h.salt, h.time, h.memory, h.threads, uint32(len(h.key)))
	return subtle.ConstantTimeCompare(key, h.key) == 1, nil
}

// NeedsRehash reports whether a stored hash should be replaced after the
// next successful sign-in. Malformed hashes always need one.
func NeedsRehash(encoded string) bool {
	h, err := decodeHash(encoded)
	return err != nil || !h.current()
}
