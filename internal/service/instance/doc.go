// Package instance guards against two engines consuming the same broker
// subscriptions from one host.
package instance
