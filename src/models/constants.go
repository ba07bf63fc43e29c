package models

// Artifact event types published by the main application
const (
	EventModelCanvasVersionCreated = "model_canvas.version_created"
	EventModelCanvasUpdated        = "model_canvas.updated"
	EventCustomerInterviewCreated  = "customer_interview.created"
	EventPitchDeckPublished        = "pitch_deck.published"
	EventWhitePaperPublished       = "white_paper.published"
	EventTeamMemberAdded           = "team.member_added"
)

// KnownEventTypes lists every event type a subscription may register for
var KnownEventTypes = []string{
	EventModelCanvasVersionCreated,
	EventModelCanvasUpdated,
	EventCustomerInterviewCreated,
	EventPitchDeckPublished,
	EventWhitePaperPublished,
	EventTeamMemberAdded,
}

// IsKnownEventType reports whether eventType is part of the published catalog
func IsKnownEventType(eventType string) bool {
	for _, et := range KnownEventTypes {
		if et == eventType {
			return true
		}
	}
	return false
}
