package core

import "fmt"

// ConnectionError reports that channel establishment failed. The session
// holds no handle after one of these.
type ConnectionError struct {
	Transport Transport
	Cause     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("memory server connection failed (%s): %v", e.Transport, e.Cause)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *ConnectionError) Unwrap() error { return e.Cause }

// NotConnectedError reports an invocation attempted while disconnected. This
// is a caller error; sessions never auto-reconnect.
type NotConnectedError struct {
	Transport Transport
}

func (e *NotConnectedError) Error() string {
	return fmt.Sprintf("not connected to memory server (%s)", e.Transport)
}

// RemoteInvocationError wraps a transport-level or peer-side fault raised
// during a tool call.
type RemoteInvocationError struct {
	Tool  string
	Cause error
}

func (e *RemoteInvocationError) Error() string {
	return fmt.Sprintf("remote invocation of %q failed: %v", e.Tool, e.Cause)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *RemoteInvocationError) Unwrap() error { return e.Cause }

// ConfigError reports malformed configuration. These are fatal at
// registration time, before any event subscription occurs.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid configuration: %s", e.Reason)
	}
	return fmt.Sprintf("invalid configuration for %q: %s", e.Field, e.Reason)
}
