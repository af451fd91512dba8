// Package health exposes the engine's liveness over the standard gRPC health
// checking protocol and provides a small client for probing it.
package health
