package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/runnerr0/aka/internal/config"
	"github.com/runnerr0/aka/internal/geo"
	"github.com/runnerr0/aka/internal/storage"
)

// Execute implements the go-flags Commander interface for GeoCommand.
func (c *GeoCommand) Execute(args []string) error {
	store, done, err := c.openStore()
	if err != nil {
		return err
	}
	defer done()

	baseURL := ""
	if c.globals != nil && c.globals.Config != "" {
		if cfg, err := config.Load(c.globals.Config); err == nil {
			baseURL = cfg.Geo.BaseURL
		}
	}
	return c.executeWithStore(store, geo.NewClient(baseURL), args)
}

func (c *GeoCommand) executeWithStore(store *storage.SQLiteStore, client *geo.Client, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("you must specify a user, host, or IP address")
	}
	network, err := c.network()
	if err != nil {
		return err
	}
	m, err := matchFor(c.Type, args[0])
	if err != nil {
		return err
	}

	token := strings.ToLower(args[0])
	ctx := context.Background()

	// The token itself may already be a host or IP; otherwise take the
	// most recently seen classifiable host among the matching rows.
	host, nick, ident := "", "", ""
	if kind := geo.Classify(token); kind != geo.KindNone {
		host = geo.Normalize(token, kind)
	}
	candidates, err := store.HostCandidates(ctx, network, m)
	if err != nil {
		return fmt.Errorf("geo lookup failed: %w", err)
	}
	for _, cand := range candidates {
		if kind := geo.Classify(cand.Host); kind != geo.KindNone {
			host = geo.Normalize(cand.Host, kind)
			nick, ident = cand.Nick, cand.Ident
			break
		}
	}
	if host == "" {
		fmt.Printf("No valid host for user %s\n", token)
		return nil
	}

	loc, err := client.Lookup(ctx, host)
	if err != nil {
		fmt.Printf("Unable to geolocate user %s. (Reason: %s)\n", token, err)
		return nil
	}
	if loc.Failed() {
		fmt.Printf("Unable to geolocate user %s. (Reason: %s)\n", token, loc.Message)
		return nil
	}

	who := fmt.Sprintf("%s (%s@%s)", nick, ident, host)
	if nick == "" {
		who = fmt.Sprintf("%s (no matching user)", token)
	}
	fmt.Printf("%s is located in %s, %s, %s (%g, %g) / Timezone: %s / Proxy: %t / Mobile: %t / IP: %s / rDNS: %s\n",
		who, loc.City, loc.RegionName, loc.Country, loc.Lat, loc.Lon,
		loc.Timezone, loc.Proxy, loc.Mobile, loc.Query, loc.Reverse)
	return nil
}
