package dispatch

// Action is the disposition of one classified event.
type Action int

const (
	// ActionSkip covers non-message and non-text events.
	ActionSkip Action = iota
	// ActionAdminRecord persists to the admin store, nothing else.
	ActionAdminRecord
	// ActionForwardAndReply triggers an AI reply back to the sender.
	ActionForwardAndReply
	// ActionStandardRecord persists a user message, ensures a profile row and
	// pushes a copy to the forward target when one is configured.
	ActionStandardRecord
)

// Classify decides the disposition of an event from its source identity.
// The admin check wins over the forward-target check, which wins over the
// standard path. Classification is pure: same inputs, same action.
func Classify(ev *Event, adminID, forwardID string) Action {
	if !ev.IsTextMessage() {
		return ActionSkip
	}
	switch {
	case adminID != "" && ev.Source.UserID == adminID:
		return ActionAdminRecord
	case forwardID != "" && ev.Source.UserID == forwardID:
		return ActionForwardAndReply
	default:
		return ActionStandardRecord
	}
}
