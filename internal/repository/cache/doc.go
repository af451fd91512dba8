// Package cache keeps the latest reading of every sensor in Redis so that
// dashboards can show current state without querying the time series.
package cache
