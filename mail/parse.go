package mail

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"

	"github.com/mlgkav/email-agent/core"
)

// keptHeaders are the raw headers carried onto core.Message for the
// classifier. Everything else is dropped after parsing.
var keptHeaders = []string{
	"List-Unsubscribe",
	"List-Id",
	"Precedence",
	"Auto-Submitted",
	"Reply-To",
	"X-Mailer",
}

// messageFromBuffer converts one collected IMAP fetch response into a
// core.Message. Returns nil when the response carries no usable content.
func messageFromBuffer(buf *imapclient.FetchMessageBuffer, bodySection *imap.FetchItemBodySection, mailbox string, uidValidity uint32) *core.Message {
	msg := &core.Message{
		Mailbox: mailbox,
		UID:     uint32(buf.UID),
		Size:    buf.RFC822Size,
		Unread:  true,
		Headers: map[string]string{},
	}

	if buf.Envelope != nil {
		msg.MessageID = buf.Envelope.MessageID
		msg.Subject = buf.Envelope.Subject
		msg.Timestamp = buf.Envelope.Date

		if len(buf.Envelope.From) > 0 {
			msg.From = formatAddress(buf.Envelope.From[0])
		}
	}

	for _, flag := range buf.Flags {
		if flag == imap.FlagSeen {
			msg.Unread = false
		}
	}

	if raw := buf.FindBodySection(bodySection); raw != nil {
		textBody, htmlBody, headers := parseBody(raw)
		msg.TextBody = textBody
		msg.HTMLBody = htmlBody
		msg.Headers = headers
	}

	msg.Id = deriveMessageID(msg.MessageID, mailbox, uidValidity, msg.UID)
	return msg
}

// formatAddress renders an envelope address as "Name <addr>" or the bare
// address when the display name is empty.
func formatAddress(addr imap.Address) string {
	if addr.Name != "" {
		return fmt.Sprintf("%s <%s>", addr.Name, addr.Addr())
	}
	return addr.Addr()
}

// deriveMessageID computes the stable message identity. The RFC 5322
// Message-ID header is preferred; messages without one fall back to the
// server coordinates, which are stable for as long as UIDVALIDITY holds.
func deriveMessageID(messageID, mailbox string, uidValidity, uid uint32) core.ID {
	if messageID != "" {
		return core.IDFromContent(messageID)
	}
	return core.IDFromContent(fmt.Sprintf("%s\x00%d\x00%d", mailbox, uidValidity, uid))
}

// parseBody parses a raw RFC 5322 message using go-message and extracts the
// text/plain body, the text/html body, and the headers the classifier needs.
func parseBody(raw []byte) (textBody string, htmlBody string, headers map[string]string) {
	headers = map[string]string{}

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		// Unparseable MIME still often carries useful plain text.
		return string(raw), "", headers
	}
	defer mr.Close()

	for _, name := range keptHeaders {
		if value := mr.Header.Get(name); value != "" {
			headers[name] = value
		}
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, _ := header.ContentType()
		body, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			continue
		}

		switch {
		case strings.HasPrefix(contentType, "text/plain") && textBody == "":
			textBody = string(body)
		case strings.HasPrefix(contentType, "text/html") && htmlBody == "":
			htmlBody = string(body)
		}
	}

	return textBody, htmlBody, headers
}
