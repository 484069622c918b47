package protocol

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the stable machine-readable code of an error envelope.
type ErrorCode string

const (
	// CodeValidation marks malformed envelopes and out-of-contract input.
	CodeValidation ErrorCode = "ValidationError"
	// CodeToolNotFound marks an unknown toolId.
	CodeToolNotFound ErrorCode = "ToolNotFound"
	// CodeProviderFault marks a failed or unusable embed/chat call.
	CodeProviderFault ErrorCode = "ProviderFault"
	// CodeOutputContract marks a tool whose output violated its own schema.
	CodeOutputContract ErrorCode = "OutputContractViolation"
	// CodeStorageFault marks a vector store read or write failure.
	CodeStorageFault ErrorCode = "StorageFault"
	// CodeHandlerFault marks any other failure raised inside a handler.
	CodeHandlerFault ErrorCode = "HandlerFault"
)

// HTTPStatus maps an error code to the status the HTTP transport returns.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeToolNotFound:
		return http.StatusNotFound
	case CodeProviderFault:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Fault is a classified error. Message and Details are safe to return to
// callers; Err carries the internal cause and is only ever logged.
type Fault struct {
	Code    ErrorCode
	Message string
	Details any
	Err     error
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Code, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

func (f *Fault) Unwrap() error { return f.Err }

// WithDetails returns a copy of f carrying details.
func (f *Fault) WithDetails(details any) *Fault {
	c := *f
	c.Details = details
	return &c
}

// NewFault builds a fault with the given code.
func NewFault(code ErrorCode, message string, err error) *Fault {
	return &Fault{Code: code, Message: message, Err: err}
}

// Validation reports caller input that is outside the tool's contract.
func Validation(message string, details any) *Fault {
	return &Fault{Code: CodeValidation, Message: message, Details: details}
}

// ProviderFault wraps a failed embed or chat call.
func ProviderFault(provider string, err error) *Fault {
	return &Fault{
		Code:    CodeProviderFault,
		Message: fmt.Sprintf("provider %q failed", provider),
		Details: map[string]any{"provider": provider},
		Err:     err,
	}
}

// StorageFault wraps a vector store failure.
func StorageFault(err error) *Fault {
	return &Fault{Code: CodeStorageFault, Message: "vector store operation failed", Err: err}
}

// AsFault extracts a *Fault from err's chain.
func AsFault(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
