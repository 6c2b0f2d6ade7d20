package bot

import (
	"encoding/json"

	"github.com/garyellow/travel-linebot-go/internal/storage"
)

// EventKind tags the inbound event variant.
type EventKind string

// Inbound event kinds.
const (
	KindText     EventKind = "text"
	KindLocation EventKind = "location"
	KindMenu     EventKind = "menu"
	KindFollow   EventKind = "follow"

	// KindUnsupported covers stickers, images and malformed postbacks.
	KindUnsupported EventKind = "unsupported"
)

// Event is one inbound user event. Exactly one of Text, Location or Action
// is meaningful, selected by Kind.
type Event struct {
	Kind        EventKind
	UserID      string
	DisplayName string // optional, from the user's profile

	Text     string
	Location storage.Location
	Action   string
}

// NewTextEvent builds a text message event.
func NewTextEvent(userID, text string) Event {
	return Event{Kind: KindText, UserID: userID, Text: text}
}

// NewLocationEvent builds a location share event.
func NewLocationEvent(userID string, lat, lng float64) Event {
	return Event{Kind: KindLocation, UserID: userID, Location: storage.Location{Lat: lat, Lng: lng}}
}

// NewMenuEvent builds a menu action event.
func NewMenuEvent(userID, action string) Event {
	return Event{Kind: KindMenu, UserID: userID, Action: action}
}

// NewUnsupportedEvent builds an event the state machine answers with a
// reminder of the current step.
func NewUnsupportedEvent(userID, detail string) Event {
	return Event{Kind: KindUnsupported, UserID: userID, Text: detail}
}

// historyPayload is the JSON stored with each history entry.
func (e Event) historyPayload() json.RawMessage {
	var v any
	switch e.Kind {
	case KindText:
		v = map[string]string{"text": e.Text}
	case KindLocation:
		v = e.Location
	case KindMenu:
		v = map[string]string{"action": e.Action}
	case KindUnsupported:
		v = map[string]string{"detail": e.Text}
	default:
		return json.RawMessage("{}")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return b
}

// validLocation reports whether the coordinates are in WGS84 range.
func validLocation(l storage.Location) bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}
