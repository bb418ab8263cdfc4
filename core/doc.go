// Package core holds the shared contracts of the bridge: the message model
// read from the host (a tagged union over plain-text and block-structured
// content), the Session interface every transport implements, the ToolResult
// envelope produced by the gateway, and the error taxonomy.
//
// Rationale: keeping contracts centralized lets transport, gateway and bridge
// depend on one small package without introducing dependency cycles, and
// makes the transport seam the natural boundary for test doubles.
package core
