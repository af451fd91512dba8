// Package mailbox contains the core domain types of the smart-mailbox pipeline.
//
// It defines the telemetry samples (WeightSample, AlarmSample), the per-sensor
// threshold configuration, the topic layout shared by sensors and actuators,
// the canonical JSON payload codec and the error taxonomy used by the engine.
package mailbox
