package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/runnerr0/aka/internal/query"
	"github.com/runnerr0/aka/internal/resolver"
	"github.com/runnerr0/aka/internal/storage"
)

// Execute implements the go-flags Commander interface for SeenCommand.
func (c *SeenCommand) Execute(args []string) error {
	store, done, err := c.openStore()
	if err != nil {
		return err
	}
	defer done()

	return c.executeWithStore(store, args)
}

func (c *SeenCommand) executeWithStore(store *storage.SQLiteStore, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("you must specify a user and optional channel")
	}
	network, err := c.network()
	if err != nil {
		return err
	}
	m, err := matchFor(c.Type, args[0])
	if err != nil {
		return err
	}

	channel := ""
	if len(args) > 1 {
		channel = args[1]
	}

	engine := query.New(store, resolver.New(store))
	rec, err := engine.Seen(context.Background(), network, m, channel)
	if err != nil {
		return fmt.Errorf("seen failed: %w", err)
	}

	token := strings.ToLower(args[0])
	if rec == nil {
		if channel != "" {
			fmt.Printf("%s has not been seen in %s.\n", token, strings.ToLower(channel))
		} else {
			fmt.Printf("%s has not been seen.\n", token)
		}
		return nil
	}

	fmt.Printf("%s (%s@%s) was last seen in %s at %s doing %s: %q\n",
		rec.Nick, rec.Ident, rec.Host, rec.Channel,
		rec.LastSeen.Local().Format("2006-01-02 15:04:05"),
		rec.Event, rec.Message)
	return nil
}
