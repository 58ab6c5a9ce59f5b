package cli

import "fmt"

// Execute implements the go-flags Commander interface for AllCommand. It
// runs history, channels, seen, and geo in sequence for one user.
func (c *AllCommand) Execute(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("you must specify a user")
	}

	fmt.Printf("Getting all for %s.\n", args[0])

	history := &HistoryCommand{Type: c.Type, shared: c.shared}
	if err := history.Execute(args[:1]); err != nil {
		return err
	}
	channels := &ChannelsCommand{Type: c.Type, shared: c.shared}
	if err := channels.Execute(args[:1]); err != nil {
		return err
	}
	seen := &SeenCommand{Type: c.Type, shared: c.shared}
	if err := seen.Execute(args[:1]); err != nil {
		return err
	}
	geo := &GeoCommand{Type: c.Type, shared: c.shared}
	if err := geo.Execute(args[:1]); err != nil {
		return err
	}

	fmt.Println("All complete.")
	return nil
}
