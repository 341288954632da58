package engine

// RoomRoundResult is the outcome of RoomEngine.ProcessRound.
type RoomRoundResult struct {
	Outbound  []OutboundMessage
	Finalized bool
	Warnings  []string
}

// RoomFinalizeResult is the outcome of RoomEngine.Finalize.
type RoomFinalizeResult struct {
	Outbound []OutboundMessage
	Minutes  string
}

// VetoResult is the outcome of RoomEngine.HandlePostFinalizationReply.
type VetoResult struct {
	ToInitiator *OutboundMessage
	ToSender    *OutboundMessage
	Handled     bool
}
