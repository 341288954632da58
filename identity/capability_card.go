package identity

// CapabilityCard is the JSON block sent to a newly self-registered sender so
// an AI-agent correspondent can discover the hub's operations (§4.5.4 step
// 3). Grounded in the original hub's hub_card: protocol, capabilities, and a
// usage block per capability.
type CapabilityCard struct {
	AIMPHub CapabilityCardBody `json:"aimp_hub"`
}

// CapabilityCardBody is the nested body of a CapabilityCard.
type CapabilityCardBody struct {
	Version           string                     `json:"version"`
	Name              string                     `json:"name"`
	Email             string                     `json:"email"`
	Protocol          string                     `json:"protocol"`
	Capabilities      []string                   `json:"capabilities"`
	RegisteredMembers []string                   `json:"registered_members"`
	Usage             map[string]CapabilityUsage `json:"usage"`
	SessionThreading  CapabilityThreading        `json:"session_threading"`
}

// CapabilityUsage documents one named capability's invocation contract.
type CapabilityUsage struct {
	How            string   `json:"how"`
	RequiredFields []string `json:"required_fields"`
	OptionalFields []string `json:"optional_fields"`
	Example        string   `json:"example"`
}

// CapabilityThreading documents the subject-line threading convention.
type CapabilityThreading struct {
	Pattern string `json:"pattern"`
	Note    string `json:"note"`
}

// NewCapabilityCard builds the card advertised to a freshly registered
// member, listing schedule_meeting and create_room as the two member-command
// capabilities (§4.5.2).
func NewCapabilityCard(hubName, hubEmail string, registeredMembers []string) CapabilityCard {
	return CapabilityCard{AIMPHub: CapabilityCardBody{
		Version:           "1.0",
		Name:              hubName,
		Email:             hubEmail,
		Protocol:          "AIMP/email",
		Capabilities:      []string{"schedule_meeting", "create_room"},
		RegisteredMembers: registeredMembers,
		Usage: map[string]CapabilityUsage{
			"schedule_meeting": {
				How:            "Send email to " + hubEmail + " with a natural-language request.",
				RequiredFields: []string{"topic", "participants"},
				OptionalFields: []string{"preferred_times", "preferred_locations"},
				Example:        "Subject: (anything)\nBody: Help me schedule a meeting with Bob and Carol next Friday to discuss Q2 plan. I prefer mornings.",
			},
			"create_room": {
				How:            "Send email to " + hubEmail + " describing the document and a deadline.",
				RequiredFields: []string{"topic", "participants", "deadline"},
				OptionalFields: []string{"initial_proposal", "resolution_rules"},
				Example:        "Subject: (anything)\nBody: Start a room with Bob and Carol to finalize the Q2 budget doc, deadline Friday 5pm.",
			},
		},
		SessionThreading: CapabilityThreading{
			Pattern: "[AIMP:{session_id}]",
			Note:    "Keep [AIMP:xxx] in subject when replying to vote invitations.",
		},
	}}
}
