// Package crypto signs and verifies report artifacts with ed25519.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"os"
	"strings"
)

const (
	privateKeyType = "ED25519 PRIVATE KEY"
	publicKeyType  = "ED25519 PUBLIC KEY"
)

// SigSuffix is appended to an artifact path to form its signature path.
const SigSuffix = ".sig"

// GenerateKeys writes a fresh ed25519 keypair as PEM. The private key
// file is readable by the owner only.
func GenerateKeys(privateKeyPath, publicKeyPath string) error {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to generate keypair: %w", err)
	}

	privateBlock := &pem.Block{
		Type:  privateKeyType,
		Bytes: privateKey,
	}
	if err := os.WriteFile(privateKeyPath, pem.EncodeToMemory(privateBlock), 0o600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}

	publicBlock := &pem.Block{
		Type:  publicKeyType,
		Bytes: publicKey,
	}
	if err := os.WriteFile(publicKeyPath, pem.EncodeToMemory(publicBlock), 0o644); err != nil {
		return fmt.Errorf("failed to write public key: %w", err)
	}

	return nil
}

// Sign signs data with the PEM private key at privateKeyPath.
func Sign(data []byte, privateKeyPath string) ([]byte, error) {
	keyData, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}

	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}
	if block.Type != privateKeyType {
		return nil, fmt.Errorf("invalid key type: expected %s, got %s", privateKeyType, block.Type)
	}

	privateKey := ed25519.PrivateKey(block.Bytes)
	if len(privateKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid private key size")
	}

	return ed25519.Sign(privateKey, data), nil
}

// Verify checks signature over data with the PEM public key.
func Verify(data, signature []byte, publicKeyPath string) (bool, error) {
	keyData, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return false, fmt.Errorf("failed to read public key: %w", err)
	}

	block, _ := pem.Decode(keyData)
	if block == nil {
		return false, fmt.Errorf("failed to decode PEM block")
	}
	if block.Type != publicKeyType {
		return false, fmt.Errorf("invalid key type: expected %s, got %s", publicKeyType, block.Type)
	}

	publicKey := ed25519.PublicKey(block.Bytes)
	if len(publicKey) != ed25519.PublicKeySize {
		return false, fmt.Errorf("invalid public key size")
	}

	return ed25519.Verify(publicKey, data, signature), nil
}

// SignFile signs the artifact at path and writes a hex-encoded
// detached signature next to it.
func SignFile(path, privateKeyPath string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read artifact: %w", err)
	}

	sig, err := Sign(data, privateKeyPath)
	if err != nil {
		return "", err
	}

	sigPath := path + SigSuffix
	if err := os.WriteFile(sigPath, []byte(hex.EncodeToString(sig)+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("failed to write signature: %w", err)
	}
	return sigPath, nil
}

// VerifyFile checks an artifact against its detached signature.
func VerifyFile(path, publicKeyPath string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read artifact: %w", err)
	}

	sigData, err := os.ReadFile(path + SigSuffix)
	if err != nil {
		return false, fmt.Errorf("failed to read signature: %w", err)
	}

	sig, err := hex.DecodeString(strings.TrimSpace(string(sigData)))
	if err != nil {
		return false, fmt.Errorf("invalid signature encoding: %w", err)
	}

	return Verify(data, sig, publicKeyPath)
}
