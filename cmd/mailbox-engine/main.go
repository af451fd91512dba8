package main

import "github.com/oshokin/mailbox-sentry/cmd/mailbox-engine/cmd"

func main() {
	cmd.Execute()
}
