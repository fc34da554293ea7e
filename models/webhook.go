package models

// Meta webhook payload, decoded once at the boundary instead of poking at
// untyped JSON inside the handler. Only the comments variant of a change is
// meaningful to the pipeline; everything else is carried but ignored.

const (
	WebhookObjectInstagram = "instagram"
	WebhookFieldComments   = "comments"
)

type WebhookNotification struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	ID      string          `json:"id"`
	Time    int64           `json:"time"`
	Changes []WebhookChange `json:"changes"`
}

type WebhookChange struct {
	Field string             `json:"field"`
	Value WebhookChangeValue `json:"value"`
}

type WebhookChangeValue struct {
	ID    string       `json:"id"`
	Media WebhookMedia `json:"media"`
	Text  string       `json:"text"`
}

type WebhookMedia struct {
	ID string `json:"id"`
}

// CommentEvent is one comment extracted from a notification. Ephemeral:
// produced per delivery, consumed by the pipeline, never stored.
type CommentEvent struct {
	CommentID string
	MediaID   string
	Text      string
}

// CommentEvents flattens the notification into the comment changes it
// carries, skipping every non-comment field.
func (n *WebhookNotification) CommentEvents() []CommentEvent {
	var events []CommentEvent
	for _, entry := range n.Entry {
		for _, change := range entry.Changes {
			if change.Field != WebhookFieldComments {
				continue
			}
			events = append(events, CommentEvent{
				CommentID: change.Value.ID,
				MediaID:   change.Value.Media.ID,
				Text:      change.Value.Text,
			})
		}
	}
	return events
}
