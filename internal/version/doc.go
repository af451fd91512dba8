// Package version carries build metadata for the mailbox binaries.
//
// Version, Commit and BuildTime are set through -ldflags -X at build time.
package version
