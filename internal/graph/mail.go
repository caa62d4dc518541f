package graph

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	"pricecase/internal"
	"pricecase/internal/connectors"
)

const (
	providerName   = "graph"
	fileAttachment = "#microsoft.graph.fileAttachment"
	pageSize       = 100
)

// Mailbox reads one user's inbox through Graph.
type Mailbox struct {
	client *Client
	userID string
	loc    *time.Location
}

func NewMailbox(client *Client, userID string, loc *time.Location) *Mailbox {
	if loc == nil {
		loc = time.UTC
	}
	return &Mailbox{client: client, userID: userID, loc: loc}
}

type emailAddress struct {
	EmailAddress struct {
		Address string `json:"address"`
		Name    string `json:"name"`
	} `json:"emailAddress"`
}

type message struct {
	ID               string       `json:"id"`
	Subject          string       `json:"subject"`
	From             emailAddress `json:"from"`
	ReceivedDateTime time.Time    `json:"receivedDateTime"`
	WebLink          string       `json:"webLink"`
	Body             struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
}

type messagePage struct {
	Value    []message `json:"value"`
	NextLink string    `json:"@odata.nextLink"`
}

type attachment struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	ContentBytes string `json:"contentBytes"`
	IsInline     bool   `json:"isInline"`
}

type attachmentPage struct {
	Value    []attachment `json:"value"`
	NextLink string       `json:"@odata.nextLink"`
}

// ListUnread pages through unread messages received on the local calendar
// days from..to.
func (m *Mailbox) ListUnread(ctx context.Context, from, to time.Time) ([]internal.MessageRef, error) {
	start, end := connectors.DayBounds(from.In(m.loc), to.In(m.loc))
	filter := fmt.Sprintf("isRead eq false and receivedDateTime ge %s and receivedDateTime lt %s",
		start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339))

	q := url.Values{}
	q.Set("$filter", filter)
	q.Set("$orderby", "receivedDateTime desc")
	q.Set("$top", fmt.Sprint(pageSize))
	q.Set("$select", "id,subject,from,receivedDateTime,webLink,hasAttachments")
	next := m.userPath("messages") + "?" + encodeQuery(q)

	var refs []internal.MessageRef
	seen := map[string]struct{}{}
	for next != "" {
		var page messagePage
		if err := m.client.getJSON(ctx, next, &page); err != nil {
			return nil, fmt.Errorf("list unread messages: %w", err)
		}
		for _, msg := range page.Value {
			refs = append(refs, internal.MessageRef{
				Provider:   providerName,
				ID:         msg.ID,
				Subject:    msg.Subject,
				Sender:     msg.From.EmailAddress.Address,
				ReceivedAt: msg.ReceivedDateTime,
				WebLink:    msg.WebLink,
			})
		}
		if _, ok := seen[page.NextLink]; ok {
			break
		}
		seen[page.NextLink] = struct{}{}
		next = page.NextLink
	}
	return refs, nil
}

// FetchEmail loads body, attachments and MIME source. Image attachments are
// returned as inline images.
func (m *Mailbox) FetchEmail(ctx context.Context, ref internal.MessageRef) (internal.EmailItem, error) {
	var msg message
	q := url.Values{}
	q.Set("$select", "id,subject,from,receivedDateTime,webLink,body")
	if err := m.client.getJSON(ctx, m.messagePath(ref.ID)+"?"+encodeQuery(q), &msg); err != nil {
		return internal.EmailItem{}, fmt.Errorf("get message: %w", err)
	}

	item := internal.EmailItem{
		MessageID:  msg.ID,
		Subject:    msg.Subject,
		Sender:     msg.From.EmailAddress.Address,
		ReceivedAt: msg.ReceivedDateTime,
		WebLink:    msg.WebLink,
	}
	if item.WebLink == "" {
		item.WebLink = ref.WebLink
	}
	if strings.EqualFold(msg.Body.ContentType, "html") {
		item.BodyHTML = msg.Body.Content
	} else {
		item.BodyText = msg.Body.Content
	}

	next := m.messagePath(ref.ID) + "/attachments"
	for next != "" {
		var page attachmentPage
		if err := m.client.getJSON(ctx, next, &page); err != nil {
			return internal.EmailItem{}, fmt.Errorf("list attachments: %w", err)
		}
		for _, att := range page.Value {
			if att.ODataType != fileAttachment {
				continue
			}
			content, err := base64.StdEncoding.DecodeString(att.ContentBytes)
			if err != nil {
				return internal.EmailItem{}, fmt.Errorf("decode attachment %s: %w", att.Name, err)
			}
			a := internal.Attachment{Name: att.Name, ContentType: att.ContentType, Content: content}
			if att.IsInline || connectors.IsImage(att.Name, att.ContentType) {
				item.InlineImages = append(item.InlineImages, a)
			} else {
				item.Attachments = append(item.Attachments, a)
			}
		}
		next = page.NextLink
	}

	if raw, err := m.client.do(ctx, "GET", m.messagePath(ref.ID)+"/$value", nil, ""); err == nil {
		item.Raw = raw
	}
	return item, nil
}

func (m *Mailbox) MarkRead(ctx context.Context, ref internal.MessageRef) error {
	if err := m.client.sendJSON(ctx, "PATCH", m.messagePath(ref.ID), map[string]bool{"isRead": true}, nil); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}

func (m *Mailbox) userPath(suffix string) string {
	return "users/" + url.PathEscape(m.userID) + "/" + suffix
}

func (m *Mailbox) messagePath(id string) string {
	return m.userPath("messages/" + url.PathEscape(id))
}

// encodeQuery escapes spaces as %20; OData filters do not accept '+'.
func encodeQuery(q url.Values) string {
	return strings.ReplaceAll(q.Encode(), "+", "%20")
}
