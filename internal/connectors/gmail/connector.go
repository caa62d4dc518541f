package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"pricecase/internal"
	"pricecase/internal/config"
	"pricecase/internal/connectors"
)

const (
	provider    = "gmail"
	user        = "me"
	unreadLabel = "UNREAD"
)

type Connector struct {
	service *gmail.Service
}

func NewConnector(ctx context.Context, cfg config.Config) (*Connector, error) {
	if err := cfg.Require("GMAIL_CLIENT_ID", cfg.GmailClientID); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_CLIENT_SECRET", cfg.GmailClientSecret); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_REFRESH_TOKEN", cfg.GmailRefreshToken); err != nil {
		return nil, err
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GmailClientID,
		ClientSecret: cfg.GmailClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.GmailRedirectURI,
		Scopes:       []string{gmail.GmailModifyScope},
	}

	tokenSource := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.GmailRefreshToken})
	return newConnector(ctx, option.WithTokenSource(tokenSource))
}

func newConnector(ctx context.Context, opts ...option.ClientOption) (*Connector, error) {
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Connector{service: svc}, nil
}

// ListUnread pages through "is:unread after:<start> before:<end>" with
// epoch-second bounds, so the local day edges are exact.
func (c *Connector) ListUnread(ctx context.Context, from, to time.Time) ([]internal.MessageRef, error) {
	start, end := connectors.DayBounds(from, to)
	query := fmt.Sprintf("is:unread after:%d before:%d", start.Unix(), end.Unix())

	var out []internal.MessageRef
	pageToken := ""
	for {
		call := c.service.Users.Messages.List(user).Q(query).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list gmail messages: %w", err)
		}

		for _, msg := range resp.Messages {
			if msg.Id == "" {
				continue
			}
			ref, err := c.metadata(ctx, msg.Id)
			if err != nil {
				return nil, err
			}
			out = append(out, ref)
		}

		if resp.NextPageToken == "" {
			return out, nil
		}
		pageToken = resp.NextPageToken
	}
}

func (c *Connector) metadata(ctx context.Context, id string) (internal.MessageRef, error) {
	msg, err := c.service.Users.Messages.Get(user, id).Format("metadata").MetadataHeaders("Subject", "From").Context(ctx).Do()
	if err != nil {
		return internal.MessageRef{}, fmt.Errorf("get gmail message %s: %w", id, err)
	}
	ref := internal.MessageRef{
		Provider: provider,
		ID:       id,
		WebLink:  webLink(id),
	}
	if msg.InternalDate > 0 {
		ref.ReceivedAt = time.UnixMilli(msg.InternalDate).UTC()
	}
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			switch strings.ToLower(h.Name) {
			case "subject":
				ref.Subject = h.Value
			case "from":
				ref.Sender = senderAddress(h.Value)
			}
		}
	}
	return ref, nil
}

// FetchEmail reads the raw format, which leaves the UNREAD label in place.
func (c *Connector) FetchEmail(ctx context.Context, ref internal.MessageRef) (internal.EmailItem, error) {
	msg, err := c.service.Users.Messages.Get(user, ref.ID).Format("raw").Context(ctx).Do()
	if err != nil {
		return internal.EmailItem{}, fmt.Errorf("get gmail message %s: %w", ref.ID, err)
	}
	if msg.Raw == "" {
		return internal.EmailItem{}, fmt.Errorf("gmail message %s has no raw payload", ref.ID)
	}
	raw, err := decodeBase64URL(msg.Raw)
	if err != nil {
		return internal.EmailItem{}, err
	}

	if ref.ReceivedAt.IsZero() && msg.InternalDate > 0 {
		ref.ReceivedAt = time.UnixMilli(msg.InternalDate).UTC()
	}
	if ref.WebLink == "" {
		ref.WebLink = webLink(ref.ID)
	}
	return connectors.ParseRaw(raw, ref)
}

func (c *Connector) MarkRead(ctx context.Context, ref internal.MessageRef) error {
	req := &gmail.ModifyMessageRequest{RemoveLabelIds: []string{unreadLabel}}
	if _, err := c.service.Users.Messages.Modify(user, ref.ID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("mark gmail message %s read: %w", ref.ID, err)
	}
	return nil
}

func webLink(id string) string {
	return "https://mail.google.com/mail/u/0/#all/" + id
}

// senderAddress keeps the bare address of a From header value.
func senderAddress(value string) string {
	value = strings.TrimSpace(value)
	if open := strings.LastIndex(value, "<"); open >= 0 {
		if end := strings.Index(value[open:], ">"); end > 0 {
			return strings.TrimSpace(value[open+1 : open+end])
		}
	}
	return value
}

func decodeBase64URL(input string) ([]byte, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	decoded, err = base64.URLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	return nil, fmt.Errorf("decode gmail raw payload: %w", err)
}
