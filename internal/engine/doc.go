// Package engine turns raw mailbox telemetry into package and alarm decisions.
//
// The Router demultiplexes a message by topic and hands it to the weight or
// alarm handler. Handlers persist the sample inside a unit of work, evaluate it
// and fan out notifications and actuator commands. A weight event for a sensor
// without threshold configuration runs the Initializer instead, so the next
// event for that sensor can be evaluated.
//
// Messages are processed one at a time by Serve; there is no parallelism
// across events.
package engine
