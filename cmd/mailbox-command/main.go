package main

import "github.com/oshokin/mailbox-sentry/cmd/mailbox-command/cmd"

func main() {
	cmd.Execute()
}
