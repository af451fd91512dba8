// Package mqtt connects the engine to the broker with the Eclipse Paho client.
//
// The Client subscribes to the weight and alarm topics of every sensor and
// puts each message on a bounded queue that the engine drains. It also
// publishes arm and disarm commands for the actuators. Subscriptions are
// renewed from the on-connect handler, so they survive reconnects.
//
// Delivery keeps broker order, so the queue hand-off runs on paho's inbound
// goroutine. While the queue is full that goroutine blocks and acknowledgements
// for outgoing commands are not read: a publish made meanwhile may report a
// timeout even though the broker receives it once the queue drains. Size the
// queue (engine.queue_size) above the burst the sensors can produce.
package mqtt
