package docdisk

import "io"

// CredentialKey is the single well-known local storage key holding the
// persisted credential.
const CredentialKey = "token"

// LocalStorage is the client-side key/value store the credential survives in
// between runs.
type LocalStorage interface {
	// Get returns the value stored under key, or nil if there is none.
	Get(key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(key string, value []byte) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error
}

// Encryptor protects the persisted credential at rest.
type Encryptor interface {
	// Encrypt reads plaintext from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Decrypt reads ciphertext from r and writes plaintext to w.
	Decrypt(r io.Reader, w io.Writer) error
}
