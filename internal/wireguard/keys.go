// Package wireguard provides the tunnel provisioner: cryptographic key
// management, tunnel configuration rendering and parsing, and lifecycle
// control of the single OS-managed tunnel interface. It integrates with the
// operating system's WireGuard implementation through external commands.
package wireguard

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/curve25519"
)

// KeyPair represents a WireGuard cryptographic key pair.
// It contains both the private and public keys in base64-encoded format,
// as required by the WireGuard configuration format. The keys are generated
// using Curve25519 elliptic curve cryptography.
type KeyPair struct {
	PrivateKey string // Base64-encoded private key (32 bytes)
	PublicKey  string // Base64-encoded public key (32 bytes)
}

// GenerateKeyPair creates a new cryptographically secure WireGuard key pair.
// It uses the system's cryptographically secure random number generator
// to create a private key, then derives the corresponding public key using
// Curve25519 elliptic curve operations.
// Returns a KeyPair pointer or an error if key generation fails.
func GenerateKeyPair() (*KeyPair, error) {
	var private [32]byte
	_, err := rand.Read(private[:])
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}

	public, err := curve25519.X25519(private[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("failed to generate public key: %w", err)
	}

	return &KeyPair{
		PrivateKey: base64.StdEncoding.EncodeToString(private[:]),
		PublicKey:  base64.StdEncoding.EncodeToString(public),
	}, nil
}

// DeriveKeyPair reconstructs a key pair from an existing base64-encoded
// private key, deriving the matching public key. This is used when a caller
// supplies their own private key instead of generating a fresh one.
// Returns a KeyPair pointer or an error if the private key is malformed.
func DeriveKeyPair(privateKey string) (*KeyPair, error) {
	decoded, err := base64.StdEncoding.DecodeString(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	if len(decoded) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(decoded))
	}

	public, err := curve25519.X25519(decoded, curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive public key: %w", err)
	}

	return &KeyPair{
		PrivateKey: privateKey,
		PublicKey:  base64.StdEncoding.EncodeToString(public),
	}, nil
}
