package cli

import "fmt"

// Execute implements the go-flags Commander interface for AboutCommand.
func (c *AboutCommand) Execute(args []string) error {
	fmt.Println("aka (Also Known As) user tracker")
	fmt.Println("Description: Tracks users across chat networks, allowing tracing and history viewing of nicks, hosts, and channels.")
	fmt.Printf("Version:     %s\n", c.version)
	fmt.Println("Source:      https://github.com/runnerr0/aka")
	return nil
}
