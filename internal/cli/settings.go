package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/runnerr0/aka/internal/storage"
)

// Execute implements the go-flags Commander interface for ConfigCommand.
func (c *ConfigCommand) Execute(args []string) error {
	store, done, err := c.openStore()
	if err != nil {
		return err
	}
	defer done()

	return c.executeWithStore(store, args)
}

func (c *ConfigCommand) executeWithStore(store *storage.SQLiteStore, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: config <key> <value>")
	}

	if err := store.SetSetting(context.Background(), args[0], args[1]); err != nil {
		return err
	}
	fmt.Printf("%s set to %s.\n", strings.ToUpper(args[0]), strings.ToUpper(args[1]))
	return nil
}

// Execute implements the go-flags Commander interface for GetConfigCommand.
func (c *GetConfigCommand) Execute(args []string) error {
	store, done, err := c.openStore()
	if err != nil {
		return err
	}
	defer done()

	return c.executeWithStore(store, args)
}

func (c *GetConfigCommand) executeWithStore(store *storage.SQLiteStore, args []string) error {
	settings, err := store.AllSettings(context.Background())
	if err != nil {
		return err
	}
	for _, line := range settings {
		fmt.Println(line)
	}
	return nil
}
