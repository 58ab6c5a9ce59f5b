package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/runnerr0/aka/internal/resolver"
	"github.com/runnerr0/aka/internal/storage"
)

// Execute implements the go-flags Commander interface for HistoryCommand.
func (c *HistoryCommand) Execute(args []string) error {
	store, done, err := c.openStore()
	if err != nil {
		return err
	}
	defer done()

	return c.executeWithStore(store, args)
}

func (c *HistoryCommand) executeWithStore(store *storage.SQLiteStore, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("you must specify a user")
	}
	network, err := c.network()
	if err != nil {
		return err
	}
	m, err := matchFor(c.Type, args[0])
	if err != nil {
		return err
	}

	res := resolver.New(store)
	exp, err := res.Expand(context.Background(), network, m, c.Deep)
	if err != nil {
		return fmt.Errorf("history failed: %w", err)
	}

	token := strings.ToLower(args[0])
	if exp.Empty() {
		fmt.Printf("No history found for %s\n", token)
		return nil
	}

	if c.globals != nil && c.globals.JSON {
		return printExpansionJSON(token, exp)
	}
	printExpansion(exp)
	fmt.Printf("History for %s complete.\n", token)
	return nil
}

// printExpansion writes the three alias sets, chunked for readability.
func printExpansion(exp *resolver.Expansion) {
	for _, line := range resolver.ChunkJoin(exp.Nicks) {
		fmt.Printf("Nick(s): %s\n", line)
	}
	for _, line := range resolver.ChunkJoin(exp.Idents) {
		fmt.Printf("Ident(s): %s\n", line)
	}
	for _, line := range resolver.ChunkJoin(exp.Hosts) {
		fmt.Printf("Host(s): %s\n", line)
	}
}

type expansionJSON struct {
	Query  string   `json:"query"`
	Nicks  []string `json:"nicks"`
	Idents []string `json:"idents"`
	Hosts  []string `json:"hosts"`
}

func printExpansionJSON(token string, exp *resolver.Expansion) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(expansionJSON{
		Query: token, Nicks: exp.Nicks, Idents: exp.Idents, Hosts: exp.Hosts,
	})
}
