package tracker

import (
	"context"
	"sync"

	"github.com/runnerr0/aka/internal/storage"
)

// whoisReply is one in-flight WHOIS or WHOWAS response being assembled
// line by line. Responses are correlated per network; two networks
// answering at once never share state.
type whoisReply struct {
	nick    string
	ident   string
	host    string
	gecos   string
	account string
	whowas  bool
}

type whoisTracker struct {
	mu       sync.Mutex
	inflight map[string]*whoisReply // keyed by network
}

func newWhoisTracker() *whoisTracker {
	return &whoisTracker{inflight: make(map[string]*whoisReply)}
}

// WhoisUser opens (or replaces) the in-flight reply for a network with the
// identity line of a WHOIS response.
func (t *Tracker) WhoisUser(network, nick, ident, host, gecos string) {
	t.whois.mu.Lock()
	defer t.whois.mu.Unlock()
	t.whois.inflight[network] = &whoisReply{
		nick: nick, ident: ident, host: host, gecos: gecos,
	}
}

// WhowasUser opens the in-flight reply for a WHOWAS response.
func (t *Tracker) WhowasUser(network, nick, ident, host, gecos string) {
	t.whois.mu.Lock()
	defer t.whois.mu.Unlock()
	t.whois.inflight[network] = &whoisReply{
		nick: nick, ident: ident, host: host, gecos: gecos, whowas: true,
	}
}

// WhoisAccount attaches the verified account line to the network's
// in-flight reply. Ignored when no reply is open.
func (t *Tracker) WhoisAccount(network, account string) {
	t.whois.mu.Lock()
	defer t.whois.mu.Unlock()
	if r, ok := t.whois.inflight[network]; ok {
		r.account = account
	}
}

// WhoisEnd closes the network's in-flight reply and records it under the
// whois/whowas sentinel room, gated by the matching setting. The
// end-of-response line for an unknown network is a no-op.
func (t *Tracker) WhoisEnd(ctx context.Context, network string) error {
	t.whois.mu.Lock()
	r, ok := t.whois.inflight[network]
	delete(t.whois.inflight, network)
	t.whois.mu.Unlock()
	if !ok {
		return nil
	}

	setting := storage.SettingRecordWhois
	event := storage.EventWhois
	channel := storage.ChannelWhois
	if r.whowas {
		setting = storage.SettingRecordWhowas
		event = storage.EventWhowas
		channel = storage.ChannelWhowas
	}

	record, err := t.store.SettingBool(ctx, setting)
	if err != nil || !record {
		return err
	}

	op := storage.UpsertOp{
		Key: storage.UserKey{
			Network: network,
			Nick:    r.nick,
			Ident:   r.ident,
			Host:    r.host,
			Channel: channel,
		},
		Event: strptr(event),
		Gecos: strptr(r.gecos),
	}
	if r.account != "" {
		op.Account = strptr(r.account)
	}
	return t.store.UpsertUser(ctx, op)
}
