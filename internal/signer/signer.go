// Package signer produces the RSA signatures carried in a package's
// signature segment.
package signer

// RSASigner signs the gzip-compressed control segment of a package
type RSASigner interface {
	// SignRSA creates an RSA PKCS1v15 signature over data
	SignRSA(data []byte) ([]byte, error)

	// Algorithm returns the scheme name used in ".SIGN.<alg>.<keyname>"
	Algorithm() string

	// GetPublicKey returns the public key
	GetPublicKey() ([]byte, error)
}
