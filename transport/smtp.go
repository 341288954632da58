package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"time"
)

// SMTPConfig configures the outbound half of SMTPIMAPTransport (§6.5
// hub.smtp_server / hub.smtp_port / hub.auth_type / smtp_use_starttls).
type SMTPConfig struct {
	Server      string
	Port        int
	Email       string
	Password    string
	UseSTARTTLS bool
	HubDomain   string
	AuthType    string // "basic" (default) | "oauth2"
	OAuth2      OAuth2Config
}

// buildAuth returns the smtp.Auth for cfg.AuthType: PlainAuth for "basic",
// or a freshly refreshed XOAUTH2 exchange for "oauth2" (§6.5).
func (cfg SMTPConfig) buildAuth() (smtp.Auth, error) {
	if cfg.AuthType != "oauth2" {
		return smtp.PlainAuth("", cfg.Email, cfg.Password, cfg.Server), nil
	}
	token, err := fetchAccessToken(cfg.OAuth2)
	if err != nil {
		return nil, err
	}
	return &xoauth2Auth{email: cfg.Email, accessToken: token}, nil
}

// sendSMTP delivers msg via the net/smtp client, attaching protocol.json as
// a multipart/mixed part when present. No SMTP/IMAP client library appears
// anywhere in the reference corpus, so this boundary is hand-rolled on
// net/smtp the way the original client hand-rolls it on Python's stdlib
// smtplib — a deliberate, justified stdlib usage (see DESIGN.md).
func sendSMTP(ctx context.Context, cfg SMTPConfig, msg OutboundEmail) (string, error) {
	messageID := MessageID(cfg.HubDomain, msg.EntityID, msg.Version, time.Now())

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	headers := textproto.MIMEHeader{}
	headers.Set("Content-Type", "text/plain; charset=utf-8")
	part, err := writer.CreatePart(headers)
	if err != nil {
		return "", &Error{Op: "send: build body part", Err: err}
	}
	if _, err := part.Write([]byte(msg.Body)); err != nil {
		return "", &Error{Op: "send: write body", Err: err}
	}

	if msg.ProtocolJSON != nil {
		attachHeaders := textproto.MIMEHeader{}
		attachHeaders.Set("Content-Type", "application/json")
		attachHeaders.Set("Content-Disposition", `attachment; filename="protocol.json"`)
		attachPart, err := writer.CreatePart(attachHeaders)
		if err != nil {
			return "", &Error{Op: "send: build attachment part", Err: err}
		}
		if _, err := attachPart.Write(msg.ProtocolJSON); err != nil {
			return "", &Error{Op: "send: write attachment", Err: err}
		}
	}
	if err := writer.Close(); err != nil {
		return "", &Error{Op: "send: close multipart writer", Err: err}
	}

	var raw bytes.Buffer
	fmt.Fprintf(&raw, "From: %s\r\n", cfg.Email)
	fmt.Fprintf(&raw, "To: %s\r\n", joinAddrs(msg.To))
	fmt.Fprintf(&raw, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&raw, "Message-ID: %s\r\n", messageID)
	if len(msg.References) > 0 {
		fmt.Fprintf(&raw, "References: %s\r\n", BuildReferences(msg.References))
	}
	if msg.InReplyTo != "" {
		fmt.Fprintf(&raw, "In-Reply-To: %s\r\n", msg.InReplyTo)
	}
	fmt.Fprintf(&raw, "Content-Type: %s\r\n", writer.FormDataContentType())
	raw.WriteString("\r\n")
	raw.Write(body.Bytes())

	addr := fmt.Sprintf("%s:%d", cfg.Server, cfg.Port)
	auth, err := cfg.buildAuth()
	if err != nil {
		return "", &Error{Op: "send: oauth2 token", Err: err}
	}

	var sendErr error
	if cfg.UseSTARTTLS {
		sendErr = sendWithSTARTTLS(addr, cfg.Server, auth, cfg.Email, msg.To, raw.Bytes())
	} else {
		sendErr = smtp.SendMail(addr, auth, cfg.Email, msg.To, raw.Bytes())
	}
	if sendErr != nil {
		return "", &Error{Op: "send", Err: sendErr}
	}
	return messageID, nil
}

func sendWithSTARTTLS(addr, server string, auth smtp.Auth, from string, to []string, data []byte) error {
	c, err := smtp.Dial(addr)
	if err != nil {
		return err
	}
	defer c.Close()
	if err := c.StartTLS(&tls.Config{ServerName: server}); err != nil {
		return err
	}
	if err := c.Auth(auth); err != nil {
		return err
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	return w.Close()
}

func joinAddrs(addrs []string) string {
	out := ""
	for i, a := range addrs {
		if i > 0 {
			out += ", "
		}
		out += a
	}
	return out
}
