package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/wanqianwin-jpg/aimp/log"
	"github.com/wanqianwin-jpg/aimp/oracle"
	"github.com/wanqianwin-jpg/aimp/protocol"
	"github.com/wanqianwin-jpg/aimp/store"
	"github.com/wanqianwin-jpg/aimp/transport"
)

// RoomEngine drives Room state transitions (§4.4.2).
type RoomEngine struct {
	Oracle oracle.Oracle
}

// ProcessRound folds every pending message into room, advances the round,
// and either finalizes (all_accepted or deadline_expired) or broadcasts an
// aggregated digest. room is mutated in place.
func (e *RoomEngine) ProcessRound(ctx context.Context, room *protocol.Room, pending []store.PendingEmail, now int64) *RoomRoundResult {
	result := &RoomRoundResult{}

	for _, msg := range pending {
		e.foldMessage(ctx, room, msg, result)
	}
	room.AdvanceRound()

	trigger := ""
	if room.AllAccepted() {
		trigger = "all_accepted"
	} else if room.IsPastDeadline(now) {
		trigger = "deadline_expired"
	}

	if trigger != "" {
		finalized := e.Finalize(ctx, room, trigger)
		result.Outbound = append(result.Outbound, finalized.Outbound...)
		result.Finalized = true
		return result
	}

	e.broadcastDigest(ctx, room, result)
	return result
}

func (e *RoomEngine) foldMessage(ctx context.Context, room *protocol.Room, msg store.PendingEmail, result *RoomRoundResult) {
	room.EnsureParticipant(msg.From)

	artifacts := make(map[string]string, len(room.Artifacts))
	for name, a := range room.Artifacts {
		artifacts[name] = a.BodyText
	}

	parsed, err := e.Oracle.ParseAmendment(ctx, msg.From, msg.Body, artifacts)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("amendment parsing failed for %s: %v", msg.From, err))
		return
	}

	switch parsed.Action {
	case "ACCEPT":
		room.Accept(msg.From)
	case "PROPOSE", "AMEND":
		if parsed.NewContent != nil {
			name := artifactName(msg.From, msg.ReceivedAt)
			baseline := latestArtifactContent(room)
			room.PutArtifact(&protocol.Artifact{
				Name:      name,
				BodyText:  *parsed.NewContent,
				Author:    msg.From,
				Timestamp: msg.ReceivedAt,
			})
			if baseline != "" {
				parsed.Changes = summarizeDiff(baseline, *parsed.NewContent)
			}
		}
	}
	room.AddToTranscript(msg.From, parsed.Action, parsed.Changes)
}

func artifactName(from string, timestamp int64) string {
	local, _, _ := strings.Cut(from, "@")
	return fmt.Sprintf("proposal_%s_%d", local, timestamp)
}

func latestArtifactContent(room *protocol.Room) string {
	var latest *protocol.Artifact
	for _, a := range room.Artifacts {
		if latest == nil || a.Timestamp > latest.Timestamp {
			latest = a
		}
	}
	if latest == nil {
		return ""
	}
	return latest.BodyText
}

// summarizeDiff renders a unified diff between two artifact bodies, used to
// enrich the transcript summary for PROPOSE/AMEND entries.
func summarizeDiff(before, after string) string {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "previous",
		ToFile:   "proposed",
		Context:  1,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil || text == "" {
		return after
	}
	return text
}

func (e *RoomEngine) broadcastDigest(ctx context.Context, room *protocol.Room, result *RoomRoundResult) {
	var transcript []oracle.TranscriptEntry
	for _, h := range room.Transcript {
		transcript = append(transcript, oracle.TranscriptEntry{From: h.From, Action: h.Action, Summary: h.Summary})
	}
	agg, err := e.Oracle.AggregateAmendments(ctx, room.Topic, transcript, room.Deadline)
	if err != nil {
		log.Ctx(ctx).Warn("amendment aggregation failed, skipping round broadcast", "room", room.RoomID, "error", err)
		result.Warnings = append(result.Warnings, fmt.Sprintf("aggregation failed: %v", err))
		return
	}
	for _, p := range room.Participants {
		result.Outbound = append(result.Outbound, OutboundMessage{
			To:      []string{p},
			Subject: transport.RoomSubject(room.RoomID, room.Topic),
			Body:    roomDigestBody(agg.CurrentProposal, agg.Summary),
		})
	}
}

// Finalize flips room to finalized, generates minutes, and addresses them
// to every participant (§4.4.2 finalize).
func (e *RoomEngine) Finalize(ctx context.Context, room *protocol.Room, trigger string) *RoomFinalizeResult {
	room.Finalize()
	room.AddToTranscript("hub", "FINALIZED", trigger)

	resolution := map[string]string{"content": latestArtifactContent(room)}
	var transcript []oracle.TranscriptEntry
	for _, h := range room.Transcript {
		transcript = append(transcript, oracle.TranscriptEntry{From: h.From, Action: h.Action, Summary: h.Summary})
	}
	minutes, err := e.Oracle.GenerateMinutes(ctx, room.Topic, transcript, resolution, room.Participants)
	if err != nil {
		log.Ctx(ctx).Warn("minutes generation failed", "room", room.RoomID, "error", err)
		minutes = roomFallbackMinutes(room.Topic)
	}

	result := &RoomFinalizeResult{Minutes: minutes}
	body := roomFinalizedBody(minutes)
	for _, p := range room.Participants {
		result.Outbound = append(result.Outbound, OutboundMessage{
			To:      []string{p},
			Subject: transport.RoomSubject(room.RoomID, room.Topic),
			Body:    body,
		})
	}
	return result
}

// HandlePostFinalizationReply implements the veto/confirm handling applied
// to messages that arrive after a room is finalized (§4.4.2 "Post-
// finalization replies").
func (e *RoomEngine) HandlePostFinalizationReply(room *protocol.Room, from, body string) *VetoResult {
	trimmed := strings.TrimSpace(body)
	upper := strings.ToUpper(trimmed)

	switch {
	case strings.HasPrefix(upper, "CONFIRM"):
		room.Accept(from)
		room.AddToTranscript(from, "CONFIRM", "")
		return &VetoResult{
			Handled: true,
			ToSender: &OutboundMessage{
				To:      []string{from},
				Subject: transport.RoomSubject(room.RoomID, room.Topic),
				Body:    roomConfirmAckBody,
			},
		}
	case strings.HasPrefix(upper, "REJECT"):
		reason := strings.TrimSpace(trimmed[len("REJECT"):])
		room.AddToTranscript(from, "REJECT", reason)
		return &VetoResult{
			Handled: true,
			ToInitiator: &OutboundMessage{
				To:      []string{room.Initiator},
				Subject: transport.RoomSubject(room.RoomID, room.Topic),
				Body:    roomVetoEscalationBody(from, reason),
			},
			ToSender: &OutboundMessage{
				To:      []string{from},
				Subject: transport.RoomSubject(room.RoomID, room.Topic),
				Body:    roomVetoAckBody,
			},
		}
	default:
		// Any other content directed at a finalized room is ignored gracefully (I5).
		return &VetoResult{Handled: false}
	}
}
