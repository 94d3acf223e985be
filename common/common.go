// Package common holds small helpers shared by the bot's packages.
package common

import "github.com/diamondburned/arikawa/v3/discord"

// Embed colours. Green marks arrivals, red marks departures.
const (
	ColourGreen discord.Color = 0x73d216
	ColourRed   discord.Color = 0xcc0000
)

// Contains returns whether `v` is in `slice`.
func Contains[T comparable](slice []T, v T) bool {
	for i := range slice {
		if slice[i] == v {
			return true
		}
	}
	return false
}
