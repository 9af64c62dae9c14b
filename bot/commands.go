package bot

import "github.com/onnwee/feedbot/discordapi"

// Commands returns the application command set the bot registers with
// Discord. The command sync fingerprints this slice, so edits here are what
// trigger a push on the next reconcile.
func Commands() []discordapi.Command {
	return []discordapi.Command{
		{
			Name:        "eat",
			Description: "Eat food",
			Options: []discordapi.CommandOption{
				{Type: discordapi.OptionTypeString, Name: "food", Description: "The food to eat", Required: true},
			},
		},
		{
			Name:        "feed",
			Description: "Give food to a user",
			Options: []discordapi.CommandOption{
				{Type: discordapi.OptionTypeUser, Name: "user", Description: "The user to receive the food", Required: true},
				{Type: discordapi.OptionTypeString, Name: "food", Description: "The food to eat", Required: true},
			},
		},
		{
			Name:        "stats",
			Description: "Show your stats",
			Options: []discordapi.CommandOption{
				{Type: discordapi.OptionTypeUser, Name: "user", Description: "User to check"},
			},
		},
	}
}
