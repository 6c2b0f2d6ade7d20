package lineutil

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/garyellow/travel-linebot-go/internal/places"
	"github.com/garyellow/travel-linebot-go/internal/stringutil"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// Menu action ids carried in postback data.
const (
	ActionSearchPlace  = "search_place"
	ActionNearbyPlaces = "nearby_places"
	ActionHelp         = "help"
)

// DefaultAnswerMaxLength is the rune limit for answer text.
const DefaultAnswerMaxLength = 2000

// MaxCarouselPlaces caps the nearby carousel.
const MaxCarouselPlaces = 5

const truncationMarker = "..."

// UnnamedPlace is shown for places the provider returns without a name.
const UnnamedPlace = "ไม่มีชื่อ"

const searchURLPrefix = "https://www.google.com/search?q="

// HelpText is the usage guide sent for the help action and on follow.
const HelpText = "How to use this bot:\n" +
	"- Use the menu to search for places or nearby spots.\n" +
	"- \"Search Place\": Type the name of a place.\n" +
	"- \"Nearby Places\": Share your location and type a category.\n" +
	"- You can always ask for travel tips in free text!"

// PostbackData encodes a menu action as {"action":"..."}.
func PostbackData(action string) string {
	return fmt.Sprintf(`{"action":%q}`, action)
}

// Text is a plain text reply.
func Text(text string) messaging_api.MessageInterface {
	return NewTextMessage(text)
}

// PlaceBubble renders one place: cover photo, name, address and a maps link.
func PlaceBubble(p places.Place) *FlexBubble {
	hero := NewFlexImage(p.ImageURL()).WithAspect("4:3", "cover")

	contents := []messaging_api.FlexComponentInterface{
		NewFlexText(placeName(p)).WithWeight("bold").WithSize("lg").WithWrap(true).FlexText,
	}
	// LINE rejects empty text components.
	if p.Address != "" {
		contents = append(contents,
			NewFlexText(p.Address).WithSize("sm").WithColor(ColorAddress).WithWrap(true).FlexText)
	}
	body := NewFlexBox("vertical", contents...)

	footer := NewFlexBox("vertical",
		NewFlexButton(NewURIAction("Open in Google Maps", p.MapsURL())).WithStyle("link").WithHeight("sm").FlexButton,
	).WithSpacing("sm").WithFlex(0)

	return NewFlexBubble(nil, hero.FlexImage, body, footer)
}

// PlaceCard is the reply for a place-name search.
func PlaceCard(p places.Place) messaging_api.MessageInterface {
	return NewFlexMessage("Result: "+placeName(p), PlaceBubble(p).FlexBubble)
}

func placeName(p places.Place) string {
	if strings.TrimSpace(p.Name) == "" {
		return UnnamedPlace
	}
	return p.Name
}

// Carousel renders up to MaxCarouselPlaces place bubbles in the given order.
func Carousel(ps []places.Place) messaging_api.MessageInterface {
	if len(ps) > MaxCarouselPlaces {
		ps = ps[:MaxCarouselPlaces]
	}
	bubbles := make([]messaging_api.FlexBubble, 0, len(ps))
	for _, p := range ps {
		bubbles = append(bubbles, *PlaceBubble(p).FlexBubble)
	}
	return NewFlexMessage("Nearby Places", NewFlexCarousel(bubbles))
}

// SanitizeAnswer strips markdown emphasis markers and trims the result.
func SanitizeAnswer(text string) string {
	text = strings.ReplaceAll(text, "**", "")
	text = strings.ReplaceAll(text, "*", "")
	return strings.TrimSpace(text)
}

// AnswerText sanitizes and truncates text to maxRunes including the marker.
// A non-positive maxRunes uses DefaultAnswerMaxLength.
func AnswerText(text string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = DefaultAnswerMaxLength
	}
	return stringutil.TruncateRunes(SanitizeAnswer(text), maxRunes, truncationMarker)
}

// SearchURL is the "more info" link for a question. The question is cut
// rune by rune so the link stays within MaxURILength.
func SearchURL(question string) string {
	var b strings.Builder
	b.WriteString(searchURLPrefix)
	for _, r := range question {
		esc := url.QueryEscape(string(r))
		if b.Len()+len(esc) > MaxURILength {
			break
		}
		b.WriteString(esc)
	}
	return b.String()
}

// AnswerCard shows the question, the answer and a web search link.
func AnswerCard(question, answer string, maxRunes int) messaging_api.MessageInterface {
	reply := AnswerText(answer, maxRunes)
	if reply == "" {
		reply = truncationMarker
	}

	body := NewFlexBox("vertical",
		NewFlexText("🤖 Gemini Suggestion").WithWeight("bold").WithSize("md").WithColor(ColorAnswer).FlexText,
		NewFlexText("Q: "+question).WithWrap(true).WithMargin("sm").WithSize("sm").WithColor(ColorGray700).FlexText,
		NewFlexSeparator().WithMargin("md").FlexSeparator,
		NewFlexText(reply).WithWrap(true).WithMargin("md").WithSize("sm").FlexText,
	)
	footer := NewFlexBox("horizontal",
		NewFlexButton(NewURIAction("🔍 More Info", SearchURL(question))).WithStyle("link").WithHeight("sm").FlexButton,
	).WithSpacing("sm")

	return NewFlexMessage("Gemini Reply", NewFlexBubble(nil, nil, body, footer).FlexBubble)
}

// HelpQuickReply offers the two flows and an admin contact.
func HelpQuickReply() *messaging_api.QuickReply {
	return NewQuickReply([]QuickReplyItem{
		{Action: NewPostbackAction("Search Place", PostbackData(ActionSearchPlace))},
		{Action: NewPostbackAction("Nearby Places", PostbackData(ActionNearbyPlaces))},
		{Action: NewMessageAction("Contact Admin", "I need to contact an admin.")},
	})
}

// Help is the usage text with quick replies.
func Help() messaging_api.MessageInterface {
	msg := NewTextMessage(HelpText)
	msg.QuickReply = HelpQuickReply()
	return msg
}
