package transport

// Attachment is one MIME part of an inbound email.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ParsedEmail is a normalized inbound message, independent of the wire
// transport that fetched it.
type ParsedEmail struct {
	MessageID   string
	Subject     string
	From        string
	FromName    string
	Recipients  []string
	Body        string
	Attachments []Attachment
	References  []string
	ReceivedAt  int64 // seconds since epoch
}

// ProtocolAttachment returns the content of the protocol.json attachment, if
// present (§6.1: "AIMP session message ⇔ subject contains [AIMP:<id>] AND
// attachment protocol.json present").
func (p ParsedEmail) ProtocolAttachment() ([]byte, bool) {
	for _, a := range p.Attachments {
		if a.Filename == "protocol.json" {
			return a.Content, true
		}
	}
	return nil, false
}
