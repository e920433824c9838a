// Package registry implements the connection registry using the actor pattern.
//
// One goroutine owns the session set; all operations arrive as commands on a channel
// (no mutexes). Per-connection write goroutines isolate slow clients: a full send
// buffer drops that message for that session only, it never stalls or evicts anyone.
// Sessions leave the set only through Unregister, driven by the transport's own
// close notification, or through CloseAll at shutdown.
package registry
