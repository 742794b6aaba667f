package gateways

import "context"

// ChecksumVerifier checks file digests
type ChecksumVerifier interface {
	// VerifyChecksum compares the file's SHA-256 with expected ("<hex>" or "sha256:<hex>")
	VerifyChecksum(ctx context.Context, filePath, expected string) error

	// CalculateChecksum returns the file's SHA-256 as hex
	CalculateChecksum(filePath string) (string, error)
}

// SignatureVerifier checks detached OpenPGP signatures
type SignatureVerifier interface {
	// ImportKeysFromURL loads an armored keyring from a URL
	ImportKeysFromURL(ctx context.Context, keysURL string) error

	// ImportKeyFromFile loads an armored or binary key from disk
	ImportKeyFromFile(keyPath string) error

	// VerifySignature checks filePath against a signature downloaded from sigURL
	VerifySignature(ctx context.Context, filePath, sigURL string) error

	// VerifySignatureFromFile checks filePath against a local signature
	VerifySignatureFromFile(filePath, sigPath string) error
}
