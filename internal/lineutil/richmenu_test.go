package lineutil

import (
	"testing"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRichMenu_Layout(t *testing.T) {
	menu := RichMenu()

	require.Len(t, menu.Areas, 6)
	assert.EqualValues(t, RichMenuWidth, menu.Size.Width)
	assert.EqualValues(t, RichMenuHeight, menu.Size.Height)

	var covered int64
	for _, a := range menu.Areas {
		b := a.Bounds
		assert.LessOrEqual(t, b.X+b.Width, int64(RichMenuWidth))
		assert.LessOrEqual(t, b.Y+b.Height, int64(RichMenuHeight))
		covered += b.Width * b.Height
	}
	assert.Equal(t, int64(RichMenuWidth*RichMenuHeight), covered, "areas should tile the canvas")
	assert.EqualValues(t, 1667, menu.Areas[5].Bounds.X)
	assert.EqualValues(t, 843, menu.Areas[5].Bounds.Y)
}

func TestRichMenu_Actions(t *testing.T) {
	menu := RichMenu()

	pb, ok := menu.Areas[0].Action.(*messaging_api.PostbackAction)
	require.True(t, ok)
	assert.Equal(t, `{"action":"search_place"}`, pb.Data)

	pb, ok = menu.Areas[1].Action.(*messaging_api.PostbackAction)
	require.True(t, ok)
	assert.Equal(t, PostbackData(ActionNearbyPlaces), pb.Data)

	msg, ok := menu.Areas[4].Action.(*messaging_api.MessageAction)
	require.True(t, ok)
	assert.Equal(t, "Plan a Trip", msg.Text)

	pb, ok = menu.Areas[5].Action.(*messaging_api.PostbackAction)
	require.True(t, ok)
	assert.Equal(t, PostbackData(ActionHelp), pb.Data)
}
