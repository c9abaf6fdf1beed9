// Package memory stores per-lead conversation history so that a follow-up
// call can open with context from earlier attempts. The Store interface is
// deliberately small: the dialer reads the latest summary when assembling a
// call context, and the event router appends a new entry after every
// finalized call.
//
// The in-memory implementation is process local. Swap in a durable backend
// (database, vector index) at wiring time when history must survive
// restarts.
package memory
