// Package postgres implements the engine's telemetry and threshold store on
// PostgreSQL (TimescaleDB in production) using pgx.
//
// Tables, all keyed by a text sensor_id:
//
//	weights(timestamp, sensor_id, value double precision)
//	alarms(timestamp, sensor_id, value text)
//	upper_threshold(sensor_id primary key, value double precision)
//	threshold_sensitivity(sensor_id primary key, value double precision)
//	email_notification(sensor_id, email_address)
//
// Store.EnsureSchema creates them when missing. Hypertable setup and retention
// are left to the deployment.
package postgres
