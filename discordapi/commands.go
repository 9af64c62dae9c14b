package discordapi

// Application command option types (the subset the bot declares).
const (
	OptionTypeString = 3
	OptionTypeUser   = 6
)

// CommandOption is one typed parameter of a slash command.
type CommandOption struct {
	Type        int    `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required,omitempty"`
}

// Command is a declarative slash-command definition. The struct has no maps
// so JSON serialization is deterministic, which the sync fingerprint relies
// on.
type Command struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Options     []CommandOption `json:"options,omitempty"`
}
