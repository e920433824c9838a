// Package router is the single entry point for inbound session events.
//
// Every message from any session - operator UI, display surface, or platform
// ingest - arrives here as a {type, data} envelope. Dispatch classifies the
// event, applies the matching state transition, and returns an explicit
// instruction (what to broadcast, what to reply) that HandleMessage then
// executes against the registry. Keeping dispatch side-effect free makes the
// router testable without a live transport.
package router
