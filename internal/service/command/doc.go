// Package command implements the operator side of mailbox-sentry: publishing
// arm and disarm commands by hand and probing a running engine.
package command
