package bot

import "github.com/line/line-bot-sdk-go/v8/linebot/webhook"

// GetUserID extracts the user ID from a one-to-one chat source. Group and
// room sources yield "".
func GetUserID(source webhook.SourceInterface) string {
	switch s := source.(type) {
	case webhook.UserSource:
		return s.UserId
	case *webhook.UserSource:
		if s != nil {
			return s.UserId
		}
	}
	return ""
}

// IsPersonalChat checks if the source is a personal (1-on-1) chat.
func IsPersonalChat(source webhook.SourceInterface) bool {
	return GetUserID(source) != ""
}
