// Package ingest supervises the platform chat workers.
//
// The supervisor listens to configuration changes and reconciles: a platform
// turning enabled starts its worker, a disconnect stops it, a changed
// identifier restarts it. Workers deliver chat through the router's normal
// event path, so from the core's perspective ingest is just another session
// sending chat-message envelopes.
package ingest
