package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/runnerr0/aka/internal/query"
	"github.com/runnerr0/aka/internal/resolver"
	"github.com/runnerr0/aka/internal/storage"
)

// Execute implements the go-flags Commander interface for OffensesCommand.
// Forms: offenses (nick|host) <subject>
//
//	offenses in <#channel> (nick|host) <subject>
func (c *OffensesCommand) Execute(args []string) error {
	store, done, err := c.openStore()
	if err != nil {
		return err
	}
	defer done()

	return c.executeWithStore(store, args)
}

func (c *OffensesCommand) executeWithStore(store *storage.SQLiteStore, args []string) error {
	network, err := c.network()
	if err != nil {
		return err
	}

	channel := ""
	if len(args) > 0 && args[0] == "in" {
		if len(args) < 2 {
			return fmt.Errorf("usage: offenses in <#channel> (nick|host) <subject>")
		}
		channel = args[1]
		args = args[2:]
	}
	if len(args) < 2 {
		return fmt.Errorf("usage: offenses (nick|host) <subject>")
	}

	subjectType := args[0]
	if subjectType != query.SubjectNick && subjectType != query.SubjectHost {
		return fmt.Errorf("subject type must be nick or host")
	}
	subject := args[1]

	engine := query.New(store, resolver.New(store))
	recs, err := engine.Offenses(context.Background(), network, subjectType, subject, channel)
	if err != nil {
		return fmt.Errorf("offenses failed: %w", err)
	}

	if len(recs) == 0 {
		fmt.Printf("No offenses found for %s\n", strings.ToLower(subject))
		return nil
	}
	for _, rec := range recs {
		fmt.Printf("%s %s in %s was %s by %s (%s@%s)\n",
			rec.Time.Local().Format("2006-01-02 15:04:05"),
			rec.TargetNick, rec.Channel, query.Describe(rec),
			rec.OpNick, rec.OpIdent, rec.OpHost)
	}
	return nil
}
