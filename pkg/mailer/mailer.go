// Package mailer sends transactional email through Resend. Bodies are authored in Markdown.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html"

	"github.com/resend/resend-go/v2"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// Message is one outbound email.
type Message struct {
	To       []string
	Subject  string
	Markdown string
	Tags     map[string]string
}

// Sender delivers messages. The Resend implementation is the production one.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// raw HTML in Markdown input is escaped because WithUnsafe is not set.
var md = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// RenderHTML converts Markdown to HTML, falling back to escaped text.
func RenderHTML(markdown string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "<pre>" + html.EscapeString(markdown) + "</pre>"
	}
	return buf.String()
}

// ResendSender sends email via the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

// NewResendSender creates a sender with the given API key and from address.
func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey), from: from}
}

// Send delivers msg and returns the provider message id.
func (s *ResendSender) Send(ctx context.Context, msg Message) (string, error) {
	if len(msg.To) == 0 {
		return "", fmt.Errorf("mailer: no recipients for %q", msg.Subject)
	}
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    RenderHTML(msg.Markdown),
		Text:    msg.Markdown,
	}
	for name, value := range msg.Tags {
		params.Tags = append(params.Tags, resend.Tag{Name: name, Value: value})
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return "", fmt.Errorf("resend send: %w", err)
	}
	return sent.Id, nil
}
