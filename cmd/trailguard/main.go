// trailguard records privileged commands into a tamper-evident audit trail.
package main

import "github.com/ashmarin/trailguard/internal/cli"

func main() {
	cli.Execute()
}
