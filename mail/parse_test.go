package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveMessageID(t *testing.T) {
	t.Run("header preferred and stable", func(t *testing.T) {
		a := deriveMessageID("<abc@example.com>", "INBOX", 7, 42)
		b := deriveMessageID("<abc@example.com>", "Archive", 9, 99)
		assert.Equal(t, a, b, "identity must follow the Message-ID header, not server coordinates")
	})

	t.Run("fallback uses server coordinates", func(t *testing.T) {
		a := deriveMessageID("", "INBOX", 7, 42)
		b := deriveMessageID("", "INBOX", 7, 42)
		c := deriveMessageID("", "INBOX", 7, 43)
		assert.Equal(t, a, b)
		assert.NotEqual(t, a, c)
	})

	t.Run("fallback is delimiter safe", func(t *testing.T) {
		a := deriveMessageID("", "INBOX1", 2, 3)
		b := deriveMessageID("", "INBOX", 12, 3)
		assert.NotEqual(t, a, b)
	})
}

func TestParseBody(t *testing.T) {
	raw := []byte("From: Alice <alice@example.com>\r\n" +
		"To: bob@example.com\r\n" +
		"Subject: lunch\r\n" +
		"List-Unsubscribe: <mailto:leave@example.com>\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/alternative; boundary=sep\r\n" +
		"\r\n" +
		"--sep\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Hi Bob,\r\n\r\nLunch tomorrow?\r\n" +
		"--sep\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<p>Hi Bob,</p><p>Lunch tomorrow?</p>\r\n" +
		"--sep--\r\n")

	textBody, htmlBody, headers := parseBody(raw)

	require.NotEmpty(t, textBody)
	assert.Contains(t, textBody, "Lunch tomorrow?")
	assert.Contains(t, htmlBody, "<p>Hi Bob,</p>")
	assert.Equal(t, "<mailto:leave@example.com>", headers["List-Unsubscribe"])
	assert.NotContains(t, headers, "Subject", "only classifier headers are kept")
}

func TestParseBodyPlainFallback(t *testing.T) {
	// Not a parseable MIME message at all.
	raw := []byte("just some text without headers")

	textBody, htmlBody, headers := parseBody(raw)

	assert.Equal(t, "just some text without headers", textBody)
	assert.Empty(t, htmlBody)
	assert.Empty(t, headers)
}
