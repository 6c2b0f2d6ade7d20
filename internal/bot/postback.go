package bot

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/garyellow/travel-linebot-go/internal/lineutil"
)

// ErrUnknownAction is returned for postbacks naming no menu action.
var ErrUnknownAction = errors.New("unknown menu action")

// postbackPayload is the JSON carried by rich menu and quick reply postbacks.
type postbackPayload struct {
	Action string `json:"action"`
}

// ParsePostback decodes {"action":"..."} postback data.
func ParsePostback(data string) (string, error) {
	if len(data) > lineutil.MaxPostbackData {
		return "", fmt.Errorf("postback data too long: %d bytes", len(data))
	}
	var p postbackPayload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return "", fmt.Errorf("invalid postback format: %w", err)
	}
	if !isMenuAction(p.Action) {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, p.Action)
	}
	return p.Action, nil
}

// menuTexts maps message texts sent by the rich menu to menu actions.
var menuTexts = map[string]string{
	"search places":  lineutil.ActionSearchPlace,
	"places near me": lineutil.ActionNearbyPlaces,
	"help":           lineutil.ActionHelp,
}

// MenuActionForText returns the menu action a rich menu message text stands
// for, or "" for ordinary text.
func MenuActionForText(text string) string {
	return menuTexts[strings.ToLower(strings.TrimSpace(text))]
}

func isMenuAction(action string) bool {
	switch action {
	case lineutil.ActionSearchPlace, lineutil.ActionNearbyPlaces, lineutil.ActionHelp:
		return true
	}
	return false
}
