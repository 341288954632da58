package transport

import "context"

// SMTPIMAPTransport is the concrete Transport boundary: IMAP for fetch, SMTP
// for send, sharing one set of hub credentials (§6.5 hub.* keys).
type SMTPIMAPTransport struct {
	IMAP IMAPConfig
	SMTP SMTPConfig
}

// Fetch implements Transport.
func (t *SMTPIMAPTransport) Fetch(ctx context.Context) ([]ParsedEmail, error) {
	return fetchIMAP(t.IMAP)
}

// Send implements Transport.
func (t *SMTPIMAPTransport) Send(ctx context.Context, msg OutboundEmail) (string, error) {
	return sendSMTP(ctx, t.SMTP, msg)
}
