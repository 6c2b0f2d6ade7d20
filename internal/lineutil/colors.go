// Package lineutil builds the LINE messages the bot replies with.
package lineutil

// Reply palette.
const (
	ColorLineGreen = "#06C755" // LINE Green (iOS)
	ColorAnswer    = "#1DB446" // answer card title
	ColorGray700   = "#555555" // question echo
	ColorAddress   = "#888888" // place address
)
