// Package config defines the settings of the mailbox binaries and provides
// helpers to load, validate and save them in YAML format.
//
// Secrets can be kept out of the file: a .env file next to the process is
// read when present and MAILBOX_* environment variables override the
// corresponding YAML values.
package config
