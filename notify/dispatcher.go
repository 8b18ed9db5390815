package notify

import (
	"context"
	"net/url"
	"strings"

	"github.com/hairizuan-noorazman/repair-desk/logger"
)

// Method records which path a notification took.
type Method string

const (
	MethodServer   Method = "server"
	MethodFallback Method = "fallback"
)

// Compose is a pre-filled mail-compose action for the operator's own mail client.
type Compose struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	URL     string `json:"url"`
}

// Delivery is the outcome of one dispatch. A fallback delivery means the
// server send failed and Compose must be handed to the operator; nothing was
// confirmed as delivered either way.
type Delivery struct {
	Method  Method   `json:"method"`
	Compose *Compose `json:"compose,omitempty"`
	Cause   string   `json:"cause,omitempty"`
}

// Fallback reports whether the server send failed.
func (d *Delivery) Fallback() bool {
	return d != nil && d.Method == MethodFallback
}

// Dispatcher sends through the server first and falls back to a mailto
// compose action. There is no retry and no de-duplication: a customer can
// receive zero, one or several emails for the same event.
type Dispatcher struct {
	sender Sender
	logger logger.Logger
}

// NewDispatcher creates a dispatcher. A nil sender always falls back.
func NewDispatcher(sender Sender, log logger.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, logger: log}
}

// Dispatch attempts the server send once, then builds the fallback.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) *Delivery {
	if d.sender != nil {
		err := d.sender.Send(ctx, msg)
		if err == nil {
			d.logger.Info(ctx, "notification sent", map[string]interface{}{
				"to":      msg.To,
				"subject": msg.Subject,
			})
			return &Delivery{Method: MethodServer}
		}

		d.logger.Warn(ctx, "notification endpoint unavailable, falling back to mailto", map[string]interface{}{
			"to":    msg.To,
			"error": err.Error(),
		})
		return &Delivery{
			Method:  MethodFallback,
			Compose: NewCompose(msg),
			Cause:   err.Error(),
		}
	}

	return &Delivery{
		Method:  MethodFallback,
		Compose: NewCompose(msg),
		Cause:   "no notification endpoint configured",
	}
}

// NewCompose builds a mailto action with CRLF line breaks encoded as %0D%0A.
func NewCompose(msg Message) *Compose {
	body := strings.ReplaceAll(NormalizeText(msg.Text), "\n", "\r\n")
	return &Compose{
		To:      msg.To,
		Subject: msg.Subject,
		Body:    body,
		URL:     MailtoURL(msg.To, msg.Subject, body),
	}
}

// MailtoURL encodes a mailto link. Spaces become %20 rather than '+', which
// most mail clients would show literally.
func MailtoURL(to, subject, body string) string {
	return "mailto:" + url.PathEscape(to) + "?subject=" + mailtoEscape(subject) + "&body=" + mailtoEscape(body)
}

func mailtoEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
