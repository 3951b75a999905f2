package mailer

import (
	"context"
	"fmt"
	"html"
	"strings"

	"palmcosmic/pkg/email"
)

// Message is one daily email ready for delivery. Params carry the
// template placeholders (SUN_SIGN, HOROSCOPE, THEME, THEME_EMOJI,
// DATE, FIRSTNAME, APP_URL).
type Message struct {
	ToEmail string
	ToName  string
	Subject string
	Params  map[string]interface{}
}

// Sender delivers one message. Implementations decide how the params
// become a rendered email.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// TemplateSender delivers through a hosted mail template.
type TemplateSender struct {
	client     *Client
	templateID int
}

func NewTemplateSender(client *Client, templateID int) *TemplateSender {
	return &TemplateSender{client: client, templateID: templateID}
}

func (s *TemplateSender) Send(ctx context.Context, msg Message) error {
	return s.client.SendTemplate(ctx, msg.ToEmail, msg.ToName, s.templateID, msg.Params)
}

// SMTPSender renders the message locally and delivers over SMTP. Used
// when no mail API key is configured.
type SMTPSender struct {
	sender *email.Sender
}

func NewSMTPSender(sender *email.Sender) *SMTPSender {
	return &SMTPSender{sender: sender}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	return s.sender.SendMail(ctx, msg.ToEmail, msg.Subject, renderHTML(msg.Params))
}

func paramString(params map[string]interface{}, key string) string {
	if v, ok := params[key]; ok {
		return fmt.Sprintf("%v", v)
	}
	return ""
}

// renderHTML produces a plain rendition of the daily template for the
// SMTP path. Markdown-ish headers in the horoscope body are kept as-is.
func renderHTML(params map[string]interface{}) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	b.WriteString(fmt.Sprintf("<h2>%s %s</h2>",
		html.EscapeString(paramString(params, "THEME_EMOJI")),
		html.EscapeString(paramString(params, "THEME"))))
	b.WriteString(fmt.Sprintf("<p>Hello %s,</p>", html.EscapeString(paramString(params, "FIRSTNAME"))))
	b.WriteString(fmt.Sprintf("<p><strong>%s</strong> &middot; %s</p>",
		html.EscapeString(paramString(params, "SUN_SIGN")),
		html.EscapeString(paramString(params, "DATE"))))

	horoscope := paramString(params, "HOROSCOPE")
	for _, para := range strings.Split(horoscope, "\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		b.WriteString(fmt.Sprintf("<p>%s</p>", html.EscapeString(para)))
	}

	if appURL := paramString(params, "APP_URL"); appURL != "" {
		b.WriteString(fmt.Sprintf(`<p><a href="%s">Open the app</a></p>`, html.EscapeString(appURL)))
	}
	b.WriteString("</body></html>")
	return b.String()
}
