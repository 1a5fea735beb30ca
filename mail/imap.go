package mail

import (
	"cmp"
	"context"
	"log/slog"
	"slices"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/mlgkav/email-agent/core"
)

// IMAPFetcher implements Fetcher against an IMAP4rev1 server using
// go-imap v2. Each Fetch call dials a fresh connection and logs out when
// done; ingestion runs are infrequent enough that connection reuse is not
// worth the session bookkeeping.
type IMAPFetcher struct {
	host     string
	port     string
	username string
	password string
	mailbox  string
	logger   *slog.Logger
}

var _ Fetcher = (*IMAPFetcher)(nil)

// NewIMAPFetcher creates an IMAP fetcher for one mailbox.
// Connections always use implicit TLS.
func NewIMAPFetcher(host, port, username, password, mailbox string) (*IMAPFetcher, error) {
	if host == "" || username == "" || password == "" {
		return nil, ErrMissingConfig
	}
	if port == "" {
		port = "993"
	}
	if mailbox == "" {
		mailbox = "INBOX"
	}
	return &IMAPFetcher{
		host:     host,
		port:     port,
		username: username,
		password: password,
		mailbox:  mailbox,
		logger:   slog.Default().With("component", "imap-fetcher"),
	}, nil
}

// Fetch connects, selects the mailbox read-only, and returns messages with
// UID greater than the watermark in ascending UID order.
func (f *IMAPFetcher) Fetch(ctx context.Context, since core.Watermark, limit int) (*FetchResult, error) {
	client, err := f.connect()
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	selectData, err := client.Select(f.mailbox, &imap.SelectOptions{ReadOnly: true}).Wait()
	if err != nil {
		return nil, &TransportError{Op: "select", Err: err}
	}

	result := &FetchResult{
		Mailbox:     f.mailbox,
		UIDValidity: selectData.UIDValidity,
	}

	startUID := imap.UID(1)
	if !since.IsZero() && since.UIDValidity == selectData.UIDValidity {
		startUID = imap.UID(since.LastUID + 1)
	} else if !since.IsZero() {
		// The server invalidated all previously seen UIDs.
		f.logger.Warn("mailbox UIDVALIDITY changed, restarting from the beginning",
			"mailbox", f.mailbox,
			"old", since.UIDValidity,
			"new", selectData.UIDValidity)
	}

	uids, err := f.searchFrom(client, startUID)
	if err != nil {
		return nil, err
	}
	if len(uids) == 0 {
		return result, nil
	}

	// Oldest first so the watermark advances in order.
	if limit > 0 && len(uids) > limit {
		uids = uids[:limit]
	}

	messages, err := f.fetchMessages(ctx, client, uids, selectData.UIDValidity)
	if err != nil {
		return nil, err
	}
	result.Messages = messages

	f.logger.Debug("fetch complete",
		"mailbox", f.mailbox,
		"uidvalidity", selectData.UIDValidity,
		"messages", len(messages))

	return result, nil
}

func (f *IMAPFetcher) connect() (*imapclient.Client, error) {
	addr := f.host + ":" + f.port

	client, err := imapclient.DialTLS(addr, nil)
	if err != nil {
		return nil, &TransportError{Op: "dial", Err: err}
	}

	if err := client.Login(f.username, f.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, &TransportError{Op: "login", Err: ErrAuthFailed}
	}

	return client, nil
}

// searchFrom returns the UIDs at or above startUID, ascending.
func (f *IMAPFetcher) searchFrom(client *imapclient.Client, startUID imap.UID) ([]imap.UID, error) {
	var uidSet imap.UIDSet
	uidSet.AddRange(startUID, 0) // startUID:*

	criteria := &imap.SearchCriteria{
		UID: []imap.UIDSet{uidSet},
	}

	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, &TransportError{Op: "search", Err: err}
	}

	uids := searchData.AllUIDs()

	// A UID search for N:* always matches the highest-UID message even when
	// its UID is below N, so filter explicitly.
	filtered := uids[:0]
	for _, uid := range uids {
		if uid >= startUID {
			filtered = append(filtered, uid)
		}
	}
	return filtered, nil
}

// fetchMessages downloads and parses full messages for the given UIDs.
// BODY.PEEK keeps the fetch from setting \Seen on the server.
func (f *IMAPFetcher) fetchMessages(ctx context.Context, client *imapclient.Client, uids []imap.UID, uidValidity uint32) ([]*core.Message, error) {
	uidSet := imap.UIDSetNum(uids...)

	bodySection := &imap.FetchItemBodySection{
		Peek: true,
	}

	fetchOpts := &imap.FetchOptions{
		Envelope:    true,
		Flags:       true,
		UID:         true,
		RFC822Size:  true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := client.Fetch(uidSet, fetchOpts)
	defer fetchCmd.Close()

	messages := make([]*core.Message, 0, len(uids))
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			f.logger.Warn("skipping message that failed to collect", "err", err)
			continue
		}

		parsed := messageFromBuffer(buf, bodySection, f.mailbox, uidValidity)
		if parsed == nil {
			continue
		}
		messages = append(messages, parsed)
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, &TransportError{Op: "fetch", Err: err}
	}

	// Servers may stream fetch responses out of order.
	slices.SortFunc(messages, func(a, b *core.Message) int {
		return cmp.Compare(a.UID, b.UID)
	})

	return messages, nil
}
