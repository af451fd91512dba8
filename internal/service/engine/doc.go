// Package engine wires configuration, storage, notification and the broker
// connection into a running mailbox-engine process.
package engine
