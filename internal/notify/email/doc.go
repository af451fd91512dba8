// Package email sends notifications over SMTP.
//
// Each Send opens its own connection; recipients of one event are served one
// after another by the engine, so the latency of an escalated event grows with
// the number of subscribers.
package email
