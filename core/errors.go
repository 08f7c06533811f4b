package core

import (
	"context"
	"errors"
	"fmt"
)

// ErrDuplicateName is wrapped by ConfigurationError for name collisions.
var ErrDuplicateName = errors.New("duplicate name")

// Operation error codes.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodeUnknown    = "UNKNOWN_OPERATION"
	CodePanic      = "PANIC"
	CodeRejected   = "REJECTED"
)

// OperationError is a recoverable business-logic failure inside an operation.
// Runtimes convert it into a tool-result message.
type OperationError struct {
	Operation string `json:"operation"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
}

func (e *OperationError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("operation error [%s] in %s: %s", e.Code, e.Operation, e.Message)
	}
	return fmt.Sprintf("operation error in %s: %s", e.Operation, e.Message)
}

// NewOperationError creates an OperationError.
func NewOperationError(operation, message, code string) *OperationError {
	return &OperationError{Operation: operation, Message: message, Code: code}
}

// TransportError is a remote connectivity failure: connection refused,
// per-call timeout or a mid-stream disconnect.
type TransportError struct {
	Worker  string `json:"worker" msgpack:"worker"`
	Address string `json:"address,omitempty" msgpack:"address,omitempty"`
	Op      string `json:"op" msgpack:"op"`
	Timeout bool   `json:"timeout,omitempty" msgpack:"timeout,omitempty"`
	Message string `json:"message" msgpack:"message"`
	Err     error  `json:"-" msgpack:"-"`
}

// NewTransportError classifies err for worker during op.
func NewTransportError(worker, address, op string, err error) *TransportError {
	te := &TransportError{Worker: worker, Address: address, Op: op, Err: err}
	if err != nil {
		te.Message = err.Error()
		te.Timeout = errors.Is(err, context.DeadlineExceeded)
	}
	return te
}

func (e *TransportError) Error() string {
	kind := "transport error"
	if e.Timeout {
		kind = "transport timeout"
	}
	if e.Address != "" {
		return fmt.Sprintf("%s: worker %s (%s) %s: %s", kind, e.Worker, e.Address, e.Op, e.Message)
	}
	return fmt.Sprintf("%s: worker %s %s: %s", kind, e.Worker, e.Op, e.Message)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StepLimitExceeded reports that a runtime hit its configured step bound.
type StepLimitExceeded struct {
	Runtime string
	Limit   int
}

func (e *StepLimitExceeded) Error() string {
	return fmt.Sprintf("runtime %s exceeded step limit of %d", e.Runtime, e.Limit)
}

// ConfigurationError is a setup-time fault (duplicate names, malformed schemas).
type ConfigurationError struct {
	Component string
	Name      string
	Reason    string
	Err       error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("configuration error in %s", e.Component)
	if e.Name != "" {
		msg += fmt.Sprintf(" (%s)", e.Name)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }
