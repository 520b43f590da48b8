package testutil

import (
	"docdisk/internal/docdisk"
	"docdisk/internal/storage"
)

// NewTestStorage creates an empty in-memory local storage.
func NewTestStorage() *storage.MemoryStorage {
	return storage.NewMemoryStorage()
}

// FailingStorage is a LocalStorage whose writes always fail.
type FailingStorage struct {
	Err error
}

var _ docdisk.LocalStorage = FailingStorage{}

func (s FailingStorage) Get(string) ([]byte, error) { return nil, nil }
func (s FailingStorage) Set(string, []byte) error   { return s.Err }
func (s FailingStorage) Remove(string) error        { return nil }
