package lineutil

import "github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

// Rich menu geometry: a 3x2 grid on the large 2500x1686 canvas.
const (
	RichMenuWidth  = 2500
	RichMenuHeight = 1686
)

// richMenuArea is one cell of the grid. Cells with an action send a postback;
// the rest send their label as a message and reach free-text Q&A.
type richMenuArea struct {
	label  string
	action string
}

var richMenuAreas = [6]richMenuArea{
	{label: "Search Places", action: ActionSearchPlace},
	{label: "Places Near Me", action: ActionNearbyPlaces},
	{label: "Popular Recommendations"},
	{label: "Search by Category"},
	{label: "Plan a Trip"},
	{label: "Help", action: ActionHelp},
}

// RichMenu returns the default travel menu.
func RichMenu() *messaging_api.RichMenuRequest {
	colWidths := [3]int64{833, 834, 833}
	rowHeight := int64(RichMenuHeight / 2)

	areas := make([]messaging_api.RichMenuArea, 0, len(richMenuAreas))
	for i, a := range richMenuAreas {
		col, row := i%3, i/3
		var x int64
		for c := range col {
			x += colWidths[c]
		}

		var action messaging_api.ActionInterface
		if a.action != "" {
			action = &messaging_api.PostbackAction{
				Label:       a.label,
				Data:        PostbackData(a.action),
				DisplayText: a.label,
			}
		} else {
			action = &messaging_api.MessageAction{Label: a.label, Text: a.label}
		}

		areas = append(areas, messaging_api.RichMenuArea{
			Bounds: &messaging_api.RichMenuBounds{
				X:      x,
				Y:      int64(row) * rowHeight,
				Width:  colWidths[col],
				Height: rowHeight,
			},
			Action: action,
		})
	}

	return &messaging_api.RichMenuRequest{
		Size:        &messaging_api.RichMenuSize{Width: RichMenuWidth, Height: RichMenuHeight},
		Selected:    false,
		Name:        "TravelBot Menu",
		ChatBarText: "TravelBot",
		Areas:       areas,
	}
}
