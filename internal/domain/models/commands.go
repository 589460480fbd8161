package models

import "strings"

// CommandType enumerates the requests a farmer can send over WhatsApp.
type CommandType string

const (
	CommandBalance CommandType = "balance"
	CommandRates   CommandType = "rates"
	CommandUnknown CommandType = "unknown"
)

// Command represents a parsed farmer request extracted from WhatsApp text.
type Command struct {
	Type CommandType
	Raw  string
	Args []string
}

// ParseCommand derives a Command instance from free-form text messages.
func ParseCommand(message string) Command {
	tokens := strings.Fields(strings.ToLower(message))
	cmd := Command{Raw: message, Type: CommandUnknown}
	if len(tokens) == 0 {
		return cmd
	}

	switch strings.TrimPrefix(tokens[0], "/") {
	case string(CommandBalance), "bal", "hisab":
		cmd.Type = CommandBalance
	case string(CommandRates), "rate":
		cmd.Type = CommandRates
	}

	if len(tokens) > 1 {
		cmd.Args = tokens[1:]
	}

	return cmd
}
