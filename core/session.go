package core

import (
	"context"
	"encoding/json"
)

// Transport identifies the channel kind used to reach the memory server.
type Transport string

const (
	// TransportStdio spawns the memory server as a subprocess and speaks
	// JSON-RPC over its stdin/stdout pipes.
	TransportStdio Transport = "stdio"
	// TransportSSE reaches an already running memory server over a
	// streaming HTTP endpoint.
	TransportSSE Transport = "sse"
)

// Session owns exactly one underlying channel to the memory server. A session
// is created disconnected; Connect and Disconnect move it between the two
// states and are both idempotent. At most one live channel exists per
// instance, and no invocation may be dispatched while disconnected.
//
// Sessions do not auto-reconnect: Invoke on a disconnected session fails with
// *NotConnectedError and it is the caller's job to Connect first.
//
// Implementations are safe for sequential use from the host's cooperative
// event dispatch; they do not support concurrent Invoke calls on one instance.
type Session interface {
	// Connect establishes the channel and performs the protocol handshake.
	// Calling Connect on a connected session is a no-op success. On failure
	// the session holds no channel and the error is a *ConnectionError.
	Connect(ctx context.Context) error

	// Disconnect releases the channel and handshake state regardless of the
	// current status. It never fails and always leaves the session
	// disconnected, reaping any spawned subprocess.
	Disconnect()

	// IsConnected reports the current status without side effects.
	IsConnected() bool

	// Invoke forwards a named tool call to the peer and returns the raw
	// result payload. It fails with *NotConnectedError when disconnected and
	// *RemoteInvocationError on any transport or peer fault.
	Invoke(ctx context.Context, tool string, args map[string]any) (json.RawMessage, error)
}
