package connectors

import (
	"bytes"
	"fmt"
	"net/mail"
	"strings"

	"github.com/jhillyerd/enmime"

	"pricecase/internal"
)

// ParseRaw decodes an RFC 822 message. Non-empty fields of ref win over
// the headers; inline image parts become inline images.
func ParseRaw(raw []byte, ref internal.MessageRef) (internal.EmailItem, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return internal.EmailItem{}, fmt.Errorf("parse message: %w", err)
	}

	item := internal.EmailItem{
		MessageID:  firstNonEmpty(ref.ID, strings.Trim(env.GetHeader("Message-ID"), "<> ")),
		Subject:    firstNonEmpty(ref.Subject, env.GetHeader("Subject")),
		Sender:     firstNonEmpty(ref.Sender, senderAddress(env)),
		ReceivedAt: ref.ReceivedAt,
		BodyText:   env.Text,
		BodyHTML:   env.HTML,
		WebLink:    ref.WebLink,
		Raw:        raw,
	}
	if item.ReceivedAt.IsZero() {
		if t, err := mail.ParseDate(env.GetHeader("Date")); err == nil {
			item.ReceivedAt = t
		}
	}

	for _, part := range env.Attachments {
		item.Attachments = append(item.Attachments, toAttachment(part, "attachment"))
	}
	for _, part := range append(env.Inlines, env.OtherParts...) {
		att := toAttachment(part, "inline")
		if IsImage(att.Name, att.ContentType) {
			item.InlineImages = append(item.InlineImages, att)
			continue
		}
		if part.FileName != "" {
			item.Attachments = append(item.Attachments, att)
		}
	}
	return item, nil
}

func toAttachment(part *enmime.Part, fallback string) internal.Attachment {
	name := strings.TrimSpace(part.FileName)
	if name == "" {
		name = fallback
	}
	return internal.Attachment{Name: name, ContentType: part.ContentType, Content: part.Content}
}

func senderAddress(env *enmime.Envelope) string {
	addrs, err := env.AddressList("From")
	if err == nil && len(addrs) > 0 {
		return addrs[0].Address
	}
	return strings.TrimSpace(env.GetHeader("From"))
}

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".heic", ".heif", ".webp"}

// IsImage reports whether an attachment should go to OCR.
func IsImage(name, contentType string) bool {
	if strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return true
	}
	lower := strings.ToLower(name)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
