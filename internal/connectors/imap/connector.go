package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"

	"pricecase/internal"
	"pricecase/internal/config"
	"pricecase/internal/connectors"
)

const provider = "imap"

// Connector opens one session per call; the server keeps no state for us
// between listing and fetching.
type Connector struct {
	host     string
	port     int
	secure   bool
	user     string
	password string
	mailbox  string
}

func NewConnector(cfg config.Config) (*Connector, error) {
	if err := cfg.Require("IMAP_HOST", cfg.IMAPHost); err != nil {
		return nil, err
	}
	if err := cfg.Require("IMAP_USER", cfg.IMAPUser); err != nil {
		return nil, err
	}
	if err := cfg.Require("IMAP_PASSWORD", cfg.IMAPPassword); err != nil {
		return nil, err
	}

	mailbox := cfg.IMAPMailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}
	return &Connector{
		host:     cfg.IMAPHost,
		port:     cfg.IMAPPort,
		secure:   cfg.IMAPSecure,
		user:     cfg.IMAPUser,
		password: cfg.IMAPPassword,
		mailbox:  mailbox,
	}, nil
}

func (c *Connector) session(ctx context.Context, readOnly bool) (*imapclient.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	addr := fmt.Sprintf("%s:%d", c.host, c.port)
	var client *imapclient.Client
	var err error
	if c.secure {
		client, err = imapclient.DialTLS(addr, &tls.Config{ServerName: c.host})
	} else {
		client, err = imapclient.Dial(addr)
	}
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		client.Timeout = time.Until(deadline)
	}

	if err := client.Login(c.user, c.password); err != nil {
		_ = client.Logout()
		return nil, err
	}
	if _, err := client.Select(c.mailbox, readOnly); err != nil {
		_ = client.Logout()
		return nil, err
	}
	return client, nil
}

// ListUnread searches UNSEEN messages by internal date. IMAP dates carry no
// time of day, so the result is narrowed again on InternalDate.
func (c *Connector) ListUnread(ctx context.Context, from, to time.Time) ([]internal.MessageRef, error) {
	start, end := connectors.DayBounds(from, to)

	client, err := c.session(ctx, true)
	if err != nil {
		return nil, err
	}
	defer client.Logout()

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	criteria.Since = start.AddDate(0, 0, -1)
	criteria.Before = end.AddDate(0, 0, 1)
	uids, err := client.UidSearch(criteria)
	if err != nil {
		return nil, err
	}
	if len(uids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchInternalDate, imap.FetchUid}
	messages := make(chan *imap.Message, len(uids))
	fetchDone := make(chan error, 1)
	go func() { fetchDone <- client.UidFetch(seqset, items, messages) }()

	out := make([]internal.MessageRef, 0, len(uids))
	for msg := range messages {
		if msg == nil {
			continue
		}
		if !msg.InternalDate.IsZero() && (msg.InternalDate.Before(start) || !msg.InternalDate.Before(end)) {
			continue
		}
		out = append(out, c.ref(msg))
	}
	if err := <-fetchDone; err != nil {
		return nil, err
	}
	return out, nil
}

// FetchEmail reads BODY.PEEK[] so the \Seen flag stays untouched.
func (c *Connector) FetchEmail(ctx context.Context, ref internal.MessageRef) (internal.EmailItem, error) {
	uid, err := parseUID(ref.ID)
	if err != nil {
		return internal.EmailItem{}, err
	}

	client, err := c.session(ctx, true)
	if err != nil {
		return internal.EmailItem{}, err
	}
	defer client.Logout()

	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}
	messages := make(chan *imap.Message, 1)
	fetchDone := make(chan error, 1)
	go func() { fetchDone <- client.UidFetch(seqset, items, messages) }()

	var raw []byte
	for msg := range messages {
		if msg == nil {
			continue
		}
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		if raw, err = io.ReadAll(body); err != nil {
			return internal.EmailItem{}, err
		}
	}
	if err := <-fetchDone; err != nil {
		return internal.EmailItem{}, err
	}
	if raw == nil {
		return internal.EmailItem{}, fmt.Errorf("imap message %d not found", uid)
	}

	// The header Message-ID identifies the email; the UID only locates it.
	headerRef := ref
	headerRef.ID = ""
	item, err := connectors.ParseRaw(raw, headerRef)
	if err != nil {
		return internal.EmailItem{}, err
	}
	if item.MessageID == "" {
		item.MessageID = fmt.Sprintf("imap-%d", uid)
	}
	return item, nil
}

func (c *Connector) MarkRead(ctx context.Context, ref internal.MessageRef) error {
	uid, err := parseUID(ref.ID)
	if err != nil {
		return err
	}

	client, err := c.session(ctx, false)
	if err != nil {
		return err
	}
	defer client.Logout()

	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	return client.UidStore(seqset, item, []interface{}{imap.SeenFlag}, nil)
}

func (c *Connector) ref(msg *imap.Message) internal.MessageRef {
	ref := internal.MessageRef{
		Provider:   provider,
		ID:         strconv.FormatUint(uint64(msg.Uid), 10),
		ReceivedAt: msg.InternalDate,
		WebLink:    c.messageURL(msg.Uid),
	}
	if msg.Envelope != nil {
		ref.Subject = msg.Envelope.Subject
		ref.Sender = firstAddress(msg.Envelope.From)
	}
	return ref
}

// messageURL follows the RFC 5092 form imap://user@host/mailbox;UID=n.
func (c *Connector) messageURL(uid uint32) string {
	return fmt.Sprintf("imap://%s@%s/%s;UID=%d", url.PathEscape(c.user), c.host, url.PathEscape(c.mailbox), uid)
}

func parseUID(id string) (uint32, error) {
	uid, err := strconv.ParseUint(strings.TrimSpace(id), 10, 32)
	if err != nil || uid == 0 {
		return 0, fmt.Errorf("invalid imap uid %q", id)
	}
	return uint32(uid), nil
}

func firstAddress(addrs []*imap.Address) string {
	for _, a := range addrs {
		if a == nil {
			continue
		}
		if email := strings.Trim(strings.Join([]string{a.MailboxName, a.HostName}, "@"), "@"); email != "" {
			return email
		}
	}
	return ""
}
