// Package timeouts defines shared timeout constants used across the replay
// service. Centralizing these values keeps collaborator deadlines consistent
// and discoverable.
package timeouts

import "time"

// NameLookup caps a batched player-name resolution call. Name lookups are an
// optional enrichment; advances must not stall on them.
const NameLookup = 2 * time.Second

// Commentary caps a single commentary generation call.
const Commentary = 10 * time.Second

// ToolCall caps the work done by one MCP tool invocation.
const ToolCall = 15 * time.Second

// Shutdown limits how long a server waits for in-flight work during
// graceful shutdown.
const Shutdown = 5 * time.Second
