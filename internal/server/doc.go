// Package server implements a bench tool server for tuning the classifier.
//
// The server speaks JSON-RPC 2.0 over stdio, one request per line, using the
// MCP tool conventions so any MCP client can drive it. It runs the robot's
// classification pipeline on saved frames without touching the motors or
// the camera.
//
// Supported methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - classify_image: Run the full pipeline and return counts and detections
//   - segment_image: Count mask pixels and optionally write the mask as PNG
//   - annotate_image: Write an annotated copy of a frame
//   - recent_records: List the newest journal entries
//
// Every tool accepts an optional region overriding the configured one.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with code
// -32000 and the Go error string as data.
package server
