package testutil

import (
	"docdisk/internal/docdisk"
	"docdisk/internal/encryption"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() docdisk.Encryptor {
	return encryption.NewTestEncryptor()
}
