// Package testutil provides shared test fixtures: message history builders
// and canned memory-server payloads shaped like the real peer's replies.
package testutil
