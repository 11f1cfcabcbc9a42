package encryption

import (
	"fmt"
	"io"

	"filippo.io/age"
)

// AgeEncryptor encrypts snapshots with age using a scrypt passphrase. The
// same passphrase must be supplied to decrypt, including on other machines.
type AgeEncryptor struct {
	recipient *age.ScryptRecipient
	identity  *age.ScryptIdentity
}

// NewAgeEncryptor creates an encryptor from the given passphrase.
func NewAgeEncryptor(passphrase string) (*AgeEncryptor, error) {
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt recipient: %w", err)
	}
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}
	return &AgeEncryptor{recipient: recipient, identity: identity}, nil
}

// Encrypt reads plaintext from r and writes age ciphertext to w.
func (e *AgeEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	cw, err := age.Encrypt(w, e.recipient)
	if err != nil {
		return fmt.Errorf("starting encryption: %w", err)
	}
	if _, err := io.Copy(cw, r); err != nil {
		return fmt.Errorf("encrypting data: %w", err)
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("finalizing encryption: %w", err)
	}
	return nil
}

// Decrypt reads age ciphertext from r and writes plaintext to w. Fails if the
// passphrase does not match the one used to encrypt.
func (e *AgeEncryptor) Decrypt(r io.Reader, w io.Writer) error {
	pr, err := age.Decrypt(r, e.identity)
	if err != nil {
		return fmt.Errorf("decrypting data: %w", err)
	}
	if _, err := io.Copy(w, pr); err != nil {
		return fmt.Errorf("reading decrypted data: %w", err)
	}
	return nil
}

var _ Encryptor = (*AgeEncryptor)(nil)
