package signer

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	_ "crypto/sha1"
	_ "crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
)

// AlpineRSASigner implements RSASigner with the schemes apk-tools accepts
type AlpineRSASigner struct {
	privateKey *rsa.PrivateKey
	hash       crypto.Hash
}

// NewAlpineRSASigner creates a signer from a PEM private key file. The
// legacy SHA-1 scheme ("RSA") is used unless sha256 is set ("RSA256").
func NewAlpineRSASigner(keyPath, passphrase string, sha256 bool) (*AlpineRSASigner, error) {
	if keyPath == "" {
		return nil, fmt.Errorf("key path is empty")
	}

	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	der := block.Bytes
	//nolint:staticcheck // abuild-keygen still writes legacy encrypted PEM
	if x509.IsEncryptedPEMBlock(block) {
		if passphrase == "" {
			return nil, fmt.Errorf("key is encrypted but no passphrase provided")
		}
		//nolint:staticcheck
		der, err = x509.DecryptPEMBlock(block, []byte(passphrase))
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt key: %w", err)
		}
	}

	privateKey, err := parseRSAPrivateKey(der)
	if err != nil {
		return nil, err
	}
	return NewAlpineRSASignerFromKey(privateKey, sha256), nil
}

// NewAlpineRSASignerFromKey wraps an in-memory private key.
func NewAlpineRSASignerFromKey(key *rsa.PrivateKey, sha256 bool) *AlpineRSASigner {
	h := crypto.SHA1
	if sha256 {
		h = crypto.SHA256
	}
	return &AlpineRSASigner{privateKey: key, hash: h}
}

// parseRSAPrivateKey tries to parse RSA private key in PKCS1 or PKCS8 format
func parseRSAPrivateKey(data []byte) (*rsa.PrivateKey, error) {
	key, err := x509.ParsePKCS1PrivateKey(data)
	if err == nil {
		return key, nil
	}

	parsedKey, err := x509.ParsePKCS8PrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	rsaKey, ok := parsedKey.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("key is not an RSA private key")
	}

	return rsaKey, nil
}

// Algorithm returns "RSA" for SHA-1 signatures and "RSA256" for SHA-256.
func (s *AlpineRSASigner) Algorithm() string {
	if s.hash == crypto.SHA256 {
		return "RSA256"
	}
	return "RSA"
}

// SignRSA creates an RSA PKCS1v15 signature over data
func (s *AlpineRSASigner) SignRSA(data []byte) ([]byte, error) {
	h := s.hash.New()
	h.Write(data)
	hashed := h.Sum(nil)

	signature, err := rsa.SignPKCS1v15(rand.Reader, s.privateKey, s.hash, hashed)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}

	return signature, nil
}

// GetPublicKey returns the public key in PEM format
func (s *AlpineRSASigner) GetPublicKey() ([]byte, error) {
	pubKeyBytes, err := x509.MarshalPKIXPublicKey(&s.privateKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}

	block := &pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: pubKeyBytes,
	}

	return pem.EncodeToMemory(block), nil
}
