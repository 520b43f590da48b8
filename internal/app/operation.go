package app

import (
	"time"

	"github.com/google/uuid"
)

// Operation is one CLI invocation. Its ID tags every log line written while
// it runs.
type Operation struct {
	ID        string
	Name      string
	StartedAt time.Time
	Status    string // "success" or "error"
}

// NewOperation starts an operation named after the CLI command being run.
func NewOperation(name string, now time.Time) *Operation {
	return &Operation{
		ID:        uuid.NewString(),
		Name:      name,
		StartedAt: now,
		Status:    "success",
	}
}

// Fail marks the operation as failed.
func (op *Operation) Fail() {
	op.Status = "error"
}

// Succeeded reports whether the operation has not failed.
func (op *Operation) Succeeded() bool {
	return op.Status == "success"
}
