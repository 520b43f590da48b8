package encryption

import (
	"fmt"

	"docdisk/internal/config"
	"docdisk/internal/docdisk"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration type.
// Type "none" returns a nil Encryptor: the credential is stored as plain JSON.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (docdisk.Encryptor, error) {
	switch cfg.Type {
	case "age", "":
		if cfg.IdentityPath == "" {
			return nil, fmt.Errorf("age encryption requires identity_path to be set")
		}
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
