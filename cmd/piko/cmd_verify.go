package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ochairo/piko/internal/domain-adapters/gateways"
	"github.com/ochairo/piko/internal/domain/services"
	"github.com/ochairo/piko/internal/external-adapters/gpg"
)

type verifyFlags struct {
	sha256     string
	sha256File string
	gpgSig     string
	gpgKey     string
	gpgKeysURL string
}

func newVerifyCmd(_ *viper.Viper) *cobra.Command {
	flags := &verifyFlags{}

	cmd := &cobra.Command{
		Use:   "verify <file>",
		Short: "Verify a file against a SHA-256 digest or a detached GPG signature",
		Example: `  piko verify dist/twitter-piko-v10.48.0-release.0.apk --sha256-file dist/twitter-piko-v10.48.0-release.0.apk.sha256
  piko verify revanced-cli.jar --gpg-sig revanced-cli.jar.asc --gpg-keys-url https://example.com/keys.asc`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runVerify(cmd, args[0], flags); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("Verification failed: ")+err.Error())
				return fail(err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.sha256, "sha256", "", "expected SHA-256 digest (hex or sha256:<hex>)")
	cmd.Flags().StringVar(&flags.sha256File, "sha256-file", "", "checksum sidecar holding the expected digest")
	cmd.Flags().StringVar(&flags.gpgSig, "gpg-sig", "", "detached signature file")
	cmd.Flags().StringVar(&flags.gpgKey, "gpg-key", "", "public key file")
	cmd.Flags().StringVar(&flags.gpgKeysURL, "gpg-keys-url", "", "URL of an armored public keyring")

	return cmd
}

func runVerify(cmd *cobra.Command, path string, flags *verifyFlags) error {
	expected := flags.sha256
	if flags.sha256File != "" {
		digest, err := readSidecarDigest(flags.sha256File)
		if err != nil {
			return err
		}
		expected = digest
	}
	if expected == "" && flags.gpgSig == "" {
		return services.NewPipelineError(services.ConfigFailure, "verify",
			errors.New("nothing to check, pass --sha256, --sha256-file or --gpg-sig"))
	}

	out := cmd.OutOrStdout()

	if expected != "" {
		if err := gateways.NewChecksumVerifier().VerifyChecksum(cmd.Context(), path, expected); err != nil {
			return err
		}
		fmt.Fprintln(out, SuccessStyle.Render("✓ ")+"SHA-256 matches")
	}

	if flags.gpgSig != "" {
		v := gpg.NewVerifier()
		if flags.gpgKeysURL != "" {
			if err := v.ImportKeysFromURL(cmd.Context(), flags.gpgKeysURL); err != nil {
				return err
			}
		}
		if flags.gpgKey != "" {
			if err := v.ImportKeyFromFile(flags.gpgKey); err != nil {
				return err
			}
		}
		if v.KeyringSize() == 0 {
			return services.NewPipelineError(services.ConfigFailure, "verify",
				errors.New("signature check needs --gpg-key or --gpg-keys-url"))
		}
		if err := v.VerifySignatureFromFile(path, flags.gpgSig); err != nil {
			return err
		}
		fmt.Fprintln(out, SuccessStyle.Render("✓ ")+"GPG signature valid")
	}

	return nil
}

// readSidecarDigest returns the digest of a "<hex>  <name>" checksum file
func readSidecarDigest(path string) (string, error) {
	//nolint:gosec // G304: path is an operator-supplied checksum file
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read checksum file: %w", err)
	}

	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return "", fmt.Errorf("checksum file %s is empty", path)
	}
	return fields[0], nil
}
