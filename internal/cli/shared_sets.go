package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/runnerr0/aka/internal/query"
	"github.com/runnerr0/aka/internal/resolver"
	"github.com/runnerr0/aka/internal/storage"
)

// Execute implements the go-flags Commander interface for ChannelsCommand.
func (c *ChannelsCommand) Execute(args []string) error {
	store, done, err := c.openStore()
	if err != nil {
		return err
	}
	defer done()

	return c.executeWithStore(store, args)
}

func (c *ChannelsCommand) executeWithStore(store *storage.SQLiteStore, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("you must specify at least one user")
	}
	network, err := c.network()
	if err != nil {
		return err
	}

	matches := make([]storage.Match, 0, len(args))
	for _, token := range args {
		m, err := matchFor(c.Type, token)
		if err != nil {
			return err
		}
		matches = append(matches, m)
	}

	engine := query.New(store, resolver.New(store))
	chans, err := engine.SharedChannels(context.Background(), network, matches)
	if err != nil {
		return fmt.Errorf("channels failed: %w", err)
	}

	users := strings.ToLower(strings.Join(args, ", "))
	if len(chans) == 0 {
		fmt.Printf("No common channels for %s\n", users)
		return nil
	}
	fmt.Printf("Common channels for %s: %s\n", users, strings.Join(chans, ", "))
	return nil
}

// Execute implements the go-flags Commander interface for UsersCommand.
func (c *UsersCommand) Execute(args []string) error {
	store, done, err := c.openStore()
	if err != nil {
		return err
	}
	defer done()

	return c.executeWithStore(store, args)
}

func (c *UsersCommand) executeWithStore(store *storage.SQLiteStore, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("you must specify at least one channel")
	}
	network, err := c.network()
	if err != nil {
		return err
	}

	engine := query.New(store, resolver.New(store))
	sets, err := engine.SharedUsers(context.Background(), network, args)
	if err != nil {
		return fmt.Errorf("users failed: %w", err)
	}

	channels := strings.ToLower(strings.Join(args, ", "))
	if sets.Empty() {
		fmt.Printf("No common users for %s\n", channels)
		return nil
	}
	fmt.Printf("Common users for %s:\n", channels)
	printExpansion(sets)
	return nil
}
