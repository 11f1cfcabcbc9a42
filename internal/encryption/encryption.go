// Package encryption protects archive snapshots at rest. Snapshots can land
// in shared or cloud storage, so they are encrypted before leaving the
// machine.
package encryption

import (
	"fmt"
	"io"

	"tabward/internal/config"
)

// Encryptor encrypts and decrypts snapshot streams.
type Encryptor interface {
	// Encrypt reads plaintext from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Decrypt reads ciphertext from r and writes plaintext to w.
	Decrypt(r io.Reader, w io.Writer) error
}

// PlainEncryptor passes data through unchanged. Used when encryption is
// disabled and in tests.
type PlainEncryptor struct{}

func (PlainEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (PlainEncryptor) Decrypt(r io.Reader, w io.Writer) error {
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

var _ Encryptor = PlainEncryptor{}

// NewEncryptorFromConfig creates an Encryptor based on the encryption config
// type. The passphrase is only required for age encryption.
func NewEncryptorFromConfig(cfg config.EncryptionConfig, passphrase string) (Encryptor, error) {
	switch cfg.Type {
	case "age", "":
		if passphrase == "" {
			return nil, fmt.Errorf("age encryption requires a passphrase")
		}
		return NewAgeEncryptor(passphrase)
	case "none":
		return PlainEncryptor{}, nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %s", cfg.Type)
	}
}
