// Package main provides the entry point for the sigscan CLI.
//
// sigscan scans the binaries of a file catalog with YARA rules. Matched
// items are tagged and their rule names recorded, and every run is kept
// in the catalog history.
//
// Usage:
//
//	sigscan import <dir>
//	sigscan scan --all
//	sigscan history
//
// See --help for all available options.
package main

func main() {
	Execute()
}
