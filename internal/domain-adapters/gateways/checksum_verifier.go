package gateways

import (
	"context"
	"fmt"
	"strings"

	"github.com/ochairo/piko/internal/domain/services"
)

const sha256DigestPrefix = "sha256:"

// checksumVerifier verifies SHA-256 digests of local files
type checksumVerifier struct{}

// NewChecksumVerifier creates a new checksum verifier
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewChecksumVerifier() *checksumVerifier {
	return &checksumVerifier{}
}

// VerifyChecksum compares a file's SHA-256 with expected.
// expected may carry the "sha256:" prefix used by the GitHub API.
func (v *checksumVerifier) VerifyChecksum(_ context.Context, filePath, expected string) error {
	want := strings.ToLower(strings.TrimSpace(expected))
	if strings.Contains(want, ":") {
		if !strings.HasPrefix(want, sha256DigestPrefix) {
			return fmt.Errorf("unsupported digest algorithm in %q", expected)
		}
		want = strings.TrimPrefix(want, sha256DigestPrefix)
	}

	actual, err := v.CalculateChecksum(filePath)
	if err != nil {
		return err
	}

	if actual != want {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", want, actual)
	}

	return nil
}

// CalculateChecksum calculates the SHA-256 checksum of a file
func (v *checksumVerifier) CalculateChecksum(filePath string) (string, error) {
	sum, err := services.ComputeSHA256(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}
	return sum, nil
}
