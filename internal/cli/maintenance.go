package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"github.com/runnerr0/aka/internal/storage"
	"github.com/runnerr0/aka/internal/tracker"
)

// Execute implements the go-flags Commander interface for WhoCommand.
func (c *WhoCommand) Execute(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("valid options: #channel, network, all")
	}
	network, err := c.network()
	if err != nil {
		return err
	}
	if c.roster == nil {
		return fmt.Errorf("no transport session attached")
	}
	if err := c.roster.RequestWho(network, args[0]); err != nil {
		return fmt.Errorf("who failed: %w", err)
	}
	fmt.Printf("%s roster updates triggered. Run process once the network has re-sent its data.\n", args[0])
	return nil
}

// Execute implements the go-flags Commander interface for ProcessCommand.
func (c *ProcessCommand) Execute(args []string) error {
	store, done, err := c.openStore()
	if err != nil {
		return err
	}
	defer done()

	return c.executeWithStore(store, args)
}

func (c *ProcessCommand) executeWithStore(store *storage.SQLiteStore, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("valid options: #channel, network, all")
	}
	network, err := c.network()
	if err != nil {
		return err
	}

	trk := tracker.New(store, c.roster, log.Logger)
	fmt.Printf("Processing %s.\n", args[0])
	n, err := trk.ProcessScope(context.Background(), network, args[0])
	if err != nil {
		return fmt.Errorf("process failed: %w", err)
	}
	fmt.Printf("%s processed (%d users).\n", args[0], n)
	return nil
}

// Execute implements the go-flags Commander interface for RawQueryCommand.
func (c *RawQueryCommand) Execute(args []string) error {
	store, done, err := c.openStore()
	if err != nil {
		return err
	}
	defer done()

	return c.executeWithStore(store, args)
}

func (c *RawQueryCommand) executeWithStore(store *storage.SQLiteStore, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("you must specify a query")
	}

	rows, err := store.RawQuery(context.Background(), strings.Join(args, " "))
	if err != nil {
		// Relay the engine's message verbatim; a bad ad-hoc query is an
		// operator mistake, not a store failure.
		fmt.Printf("Error: %s\n", err)
		return nil
	}
	for _, row := range rows {
		fmt.Println(row)
	}
	fmt.Printf("%d records retrieved\n", len(rows))
	return nil
}

// Execute implements the go-flags Commander interface for StatsCommand.
func (c *StatsCommand) Execute(args []string) error {
	store, done, err := c.openStore()
	if err != nil {
		return err
	}
	defer done()

	return c.executeWithStore(store, args)
}

func (c *StatsCommand) executeWithStore(store *storage.SQLiteStore, args []string) error {
	network, err := c.network()
	if err != nil {
		return err
	}

	stats, err := store.Stats(context.Background(), network)
	if err != nil {
		return fmt.Errorf("stats failed: %w", err)
	}

	fmt.Printf("Nick(s):       %s\n", humanize.Comma(stats.Nicks))
	fmt.Printf("Ident(s):      %s\n", humanize.Comma(stats.Idents))
	fmt.Printf("Host(s):       %s\n", humanize.Comma(stats.Hosts))
	fmt.Printf("Channel(s):    %s\n", humanize.Comma(stats.Channels))
	fmt.Printf("Size:          %s\n", humanize.Bytes(uint64(stats.SizeBytes)))
	fmt.Printf("Total Records: %s\n", humanize.Comma(stats.Records))
	return nil
}

// Execute implements the go-flags Commander interface for PurgeCommand.
func (c *PurgeCommand) Execute(args []string) error {
	store, done, err := c.openStore()
	if err != nil {
		return err
	}
	defer done()

	return c.executeWithStore(store, args)
}

func (c *PurgeCommand) executeWithStore(store *storage.SQLiteStore, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("you must specify an age in days")
	}
	network, err := c.network()
	if err != nil {
		return err
	}
	days, err := strconv.Atoi(args[0])
	if err != nil || days < 0 {
		return fmt.Errorf("invalid day count %q", args[0])
	}

	deleted, err := store.Purge(context.Background(), network, days)
	if errors.Is(err, storage.ErrPurgeDisabled) {
		fmt.Println("Purge is disabled. Set ENABLE_PURGE TRUE to enable it.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}
	fmt.Printf("Purged %d records older than %d days on %s.\n", deleted, days, strings.ToLower(network))
	return nil
}
