// Package liberrors contains errors returned by the library.
package liberrors

import (
	"fmt"
)

// ErrServerTerminated is an error that can be returned by a server.
type ErrServerTerminated struct{}

// Error implements the error interface.
func (e ErrServerTerminated) Error() string {
	return "terminated"
}

// ErrServerConnAlreadyStarted is an error that can be returned by a server.
type ErrServerConnAlreadyStarted struct{}

// Error implements the error interface.
func (e ErrServerConnAlreadyStarted) Error() string {
	return "connection has already been started"
}

// ErrServerCSeqMissing is an error that can be returned by a server.
type ErrServerCSeqMissing struct{}

// Error implements the error interface.
func (e ErrServerCSeqMissing) Error() string {
	return "CSeq is missing"
}

// ErrServerCSeqInvalid is an error that can be returned by a server.
type ErrServerCSeqInvalid struct {
	Value string
}

// Error implements the error interface.
func (e ErrServerCSeqInvalid) Error() string {
	return fmt.Sprintf("invalid CSeq '%s'", e.Value)
}

// ErrServerInvalidPath is an error that can be returned by a server.
type ErrServerInvalidPath struct{}

// Error implements the error interface.
func (e ErrServerInvalidPath) Error() string {
	return "invalid path"
}

// ErrServerTransportHeaderInvalid is an error that can be returned by a server.
type ErrServerTransportHeaderInvalid struct {
	Err error
}

// Error implements the error interface.
func (e ErrServerTransportHeaderInvalid) Error() string {
	return fmt.Sprintf("invalid transport header: %v", e.Err)
}

// Unwrap returns the wrapped error.
func (e ErrServerTransportHeaderInvalid) Unwrap() error {
	return e.Err
}

// ErrServerProtocolRead is an error that can be returned by a server.
// It is produced when a request cannot be read or decoded.
type ErrServerProtocolRead struct {
	Err error
}

// Error implements the error interface.
func (e ErrServerProtocolRead) Error() string {
	return fmt.Sprintf("unable to read request: %v", e.Err)
}

// Unwrap returns the wrapped error.
func (e ErrServerProtocolRead) Unwrap() error {
	return e.Err
}

// ErrServerProtocolWrite is an error that can be returned by a server.
// It is produced when a response cannot be encoded or delivered.
type ErrServerProtocolWrite struct {
	Err error
}

// Error implements the error interface.
func (e ErrServerProtocolWrite) Error() string {
	return fmt.Sprintf("unable to write response: %v", e.Err)
}

// Unwrap returns the wrapped error.
func (e ErrServerProtocolWrite) Unwrap() error {
	return e.Err
}

// ErrServerSuccess is an error that carries a descriptive message
// but signals a successful completion.
type ErrServerSuccess struct {
	Message string
}

// Error implements the error interface.
func (e ErrServerSuccess) Error() string {
	return e.Message
}

// ErrServerClientClosed is an error that can be returned by a server.
type ErrServerClientClosed struct{}

// Error implements the error interface.
func (e ErrServerClientClosed) Error() string {
	return "connection closed by the client"
}

// ErrServerConnClosed is an error that can be returned by a server.
type ErrServerConnClosed struct{}

// Error implements the error interface.
func (e ErrServerConnClosed) Error() string {
	return "connection closed by the server"
}

// ErrServerContractViolation is an error that can be returned by a server.
// It is produced when a request that passed the wire adapter lacks
// something the adapter is supposed to guarantee.
type ErrServerContractViolation struct {
	What string
}

// Error implements the error interface.
func (e ErrServerContractViolation) Error() string {
	return fmt.Sprintf("contract violation: %s", e.What)
}
