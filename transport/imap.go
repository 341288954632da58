package transport

import (
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"time"
)

// IMAPConfig configures the inbound half of SMTPIMAPTransport (§6.5
// hub.imap_server / hub.imap_port / hub.auth_type).
type IMAPConfig struct {
	Server   string
	Port     int
	Email    string
	Password string
	AuthType string // "basic" (default) | "oauth2"
	OAuth2   OAuth2Config
}

// fetchIMAP opens a short-lived IMAPS connection, selects INBOX, searches
// for unseen mail, and parses each hit. It implements only the handful of
// IMAP4rev1 commands the hub needs (LOGIN or AUTHENTICATE, SELECT, UID
// SEARCH, UID FETCH) — wire-level IMAP handling is explicitly out of the spec's
// core (§1), so this stays a minimal, literal client rather than pulling in
// an IMAP library absent from the reference corpus (see DESIGN.md).
func fetchIMAP(cfg IMAPConfig) ([]ParsedEmail, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Server, cfg.Port)
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: cfg.Server})
	if err != nil {
		return nil, &Error{Op: "fetch: dial", Err: err}
	}
	defer conn.Close()

	c := textproto.NewConn(conn)
	if _, err := c.ReadLine(); err != nil { // server greeting
		return nil, &Error{Op: "fetch: greeting", Err: err}
	}

	if err := imapLogin(c, cfg); err != nil {
		return nil, &Error{Op: "fetch: login", Err: err}
	}
	if err := imapCommand(c, "SELECT", "INBOX"); err != nil {
		return nil, &Error{Op: "fetch: select inbox", Err: err}
	}

	searchLines, err := imapCommandLines(c, "UID SEARCH", "UNSEEN")
	if err != nil {
		return nil, &Error{Op: "fetch: search", Err: err}
	}
	uids := parseSearchUIDs(searchLines)

	var out []ParsedEmail
	for _, uid := range uids {
		lines, err := imapCommandLines(c, "UID FETCH", fmt.Sprintf("%s (RFC822)", uid))
		if err != nil {
			continue // one bad message must not abort the fetch
		}
		if parsed, ok := parseFetchResponse(lines); ok {
			out = append(out, parsed)
		}
	}
	return out, nil
}

// imapLogin authenticates with LOGIN for basic auth, or AUTHENTICATE
// XOAUTH2 with a freshly refreshed access token for oauth2 (§6.5).
func imapLogin(c *textproto.Conn, cfg IMAPConfig) error {
	if cfg.AuthType != "oauth2" {
		return imapCommand(c, "LOGIN", quoteIMAP(cfg.Email)+" "+quoteIMAP(cfg.Password))
	}
	token, err := fetchAccessToken(cfg.OAuth2)
	if err != nil {
		return err
	}
	encoded := base64.StdEncoding.EncodeToString([]byte(xoauth2String(cfg.Email, token)))
	return imapCommand(c, "AUTHENTICATE", "XOAUTH2 "+encoded)
}

func quoteIMAP(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func imapCommand(c *textproto.Conn, verb, args string) error {
	_, err := imapCommandLines(c, verb, args)
	return err
}

func imapCommandLines(c *textproto.Conn, verb, args string) ([]string, error) {
	tag := fmt.Sprintf("a%d", c.Next())
	if err := c.PrintfLine("%s %s %s", tag, verb, args); err != nil {
		return nil, err
	}
	var lines []string
	for {
		line, err := c.ReadLine()
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(line, tag+" ") {
			if !strings.Contains(line, "OK") {
				return lines, fmt.Errorf("imap command %s failed: %s", verb, line)
			}
			return lines, nil
		}
		lines = append(lines, line)
	}
}

func parseSearchUIDs(lines []string) []string {
	var uids []string
	for _, line := range lines {
		if !strings.HasPrefix(line, "* SEARCH") {
			continue
		}
		fields := strings.Fields(strings.TrimPrefix(line, "* SEARCH"))
		uids = append(uids, fields...)
	}
	return uids
}

// parseFetchResponse extracts the raw RFC822 body from a UID FETCH response
// and parses it into a ParsedEmail.
func parseFetchResponse(lines []string) (ParsedEmail, bool) {
	raw := strings.Join(lines, "\r\n")
	idx := strings.Index(raw, "\r\n\r\n")
	if idx == -1 {
		return ParsedEmail{}, false
	}
	msg, err := mail.ReadMessage(strings.NewReader(raw[strings.Index(raw, "\n")+1:]))
	if err != nil {
		return ParsedEmail{}, false
	}
	return parseMailMessage(msg, time.Now().Unix())
}

// parseMailMessage converts a parsed net/mail.Message into a ParsedEmail,
// extracting multipart attachments (notably protocol.json) if present.
func parseMailMessage(msg *mail.Message, receivedAt int64) (ParsedEmail, bool) {
	p := ParsedEmail{
		MessageID:  strings.TrimSpace(msg.Header.Get("Message-ID")),
		Subject:    decodeSubject(msg.Header.Get("Subject")),
		From:       msg.Header.Get("From"),
		ReceivedAt: receivedAt,
	}
	if refs := msg.Header.Get("References"); refs != "" {
		p.References = strings.Fields(refs)
	}
	if addr, err := mail.ParseAddress(p.From); err == nil {
		p.From = addr.Address
		p.FromName = addr.Name
	}

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		body, _ := io.ReadAll(msg.Body)
		p.Body = string(body)
		return p, true
	}

	reader := multipart.NewReader(msg.Body, params["boundary"])
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		content, _ := io.ReadAll(part)
		filename := part.FileName()
		if filename == "" && p.Body == "" {
			p.Body = string(content)
			continue
		}
		if filename != "" {
			p.Attachments = append(p.Attachments, Attachment{
				Filename:    filename,
				ContentType: part.Header.Get("Content-Type"),
				Content:     content,
			})
		}
	}
	return p, true
}

func decodeSubject(subject string) string {
	decoder := mime.WordDecoder{}
	decoded, err := decoder.DecodeHeader(subject)
	if err != nil {
		return subject
	}
	return decoded
}
