package hub

import (
	"context"

	"github.com/wanqianwin-jpg/aimp/engine"
	"github.com/wanqianwin-jpg/aimp/store"
	"github.com/wanqianwin-jpg/aimp/transport"
)

// EmailSender implements poll.Sender: it threads every outbound message
// (References/In-Reply-To/Message-ID, §6.1) using the store's prior
// message-id history before handing off to the transport.
type EmailSender struct {
	Store     *store.Store
	Transport transport.Transport
	HubDomain string
}

// SendSession implements poll.Sender.
func (s *EmailSender) SendSession(ctx context.Context, sessionID string, version int, msg engine.OutboundMessage) error {
	return s.sendThreaded(ctx, sessionID, version, msg)
}

// SendRoom implements poll.Sender. Rooms do not carry a version counter, so
// every Room message is threaded and given a Message-ID with version 0; the
// room's current round is not part of the Message-ID.
func (s *EmailSender) SendRoom(ctx context.Context, roomID string, msg engine.OutboundMessage) error {
	return s.sendThreaded(ctx, roomID, 0, msg)
}

func (s *EmailSender) sendThreaded(ctx context.Context, entityID string, version int, msg engine.OutboundMessage) error {
	priorIDs, err := s.Store.LoadMessageIDs(entityID)
	if err != nil {
		return err
	}
	var inReplyTo string
	if len(priorIDs) > 0 {
		inReplyTo = priorIDs[len(priorIDs)-1]
	}

	out := transport.OutboundEmail{
		To:           msg.To,
		Subject:      msg.Subject,
		Body:         msg.Body,
		ProtocolJSON: msg.ProtocolJSON,
		References:   priorIDs,
		InReplyTo:    inReplyTo,
		EntityID:     entityID,
		Version:      version,
	}

	messageID, err := s.Transport.Send(ctx, out)
	if err != nil {
		return err
	}
	return s.Store.SaveMessageID(entityID, messageID)
}

// SendPlain implements poll.Sender for unthreaded, one-off replies
// (registration instructions, invite acceptance/rejection, member-command
// clarifications).
func (s *EmailSender) SendPlain(ctx context.Context, to, subject, body string) error {
	_, err := s.Transport.Send(ctx, transport.OutboundEmail{
		To:      []string{to},
		Subject: subject,
		Body:    body,
	})
	return err
}
