package handlers

import (
	"context"
	"maps"
	"slices"
)

// HandlerFunc handles one parsed command.
type HandlerFunc func(ctx context.Context, cmd Command)

// Middleware wraps a HandlerFunc.
type Middleware func(next HandlerFunc) HandlerFunc

// RegisteredHandler represents a command handler with its description and middleware.
// It encapsulates all information needed to register and document a command.
type RegisteredHandler struct {
	Usage       string
	Description string
	Handler     HandlerFunc
	Middleware  []Middleware
}

// RegisterAllCommands initializes and returns a map of all available owner commands.
// Every command is owner-only.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	handlers := make(map[string]RegisteredHandler)
	ownerOnly := []Middleware{OwnerOnly(deps)}

	handlers["afk"] = RegisteredHandler{
		Usage:       "afk [reason]",
		Description: "Mark yourself away and auto-answer private chats and mentions.",
		Handler:     NewAfkHandler(deps),
		Middleware:  ownerOnly,
	}
	handlers["unafk"] = RegisteredHandler{
		Usage:       "unafk",
		Description: "End the AFK period.",
		Handler:     NewUnafkHandler(deps),
		Middleware:  ownerOnly,
	}
	handlers["afkignore"] = RegisteredHandler{
		Usage:       "afkignore [chat]",
		Description: "Never send AFK notices in this chat (or the given id/@username).",
		Handler:     NewIgnoreHandler(deps, true),
		Middleware:  ownerOnly,
	}
	handlers["afkunignore"] = RegisteredHandler{
		Usage:       "afkunignore [chat]",
		Description: "Allow AFK notices in this chat again.",
		Handler:     NewIgnoreHandler(deps, false),
		Middleware:  ownerOnly,
	}
	handlers["autoreply"] = RegisteredHandler{
		Usage:       "autoreply add|exact|peer|del|delpeer|list|clear|on|off|enable|disable ...",
		Description: "Manage keyword auto-replies. Use `trigger | response`, or reply to a media message.",
		Handler:     NewAutoReplyHandler(deps),
		Middleware:  ownerOnly,
	}
	handlers["status"] = RegisteredHandler{
		Usage:       "status",
		Description: "Show AFK state, rule and ignore counts.",
		Handler:     NewStatusHandler(deps),
		Middleware:  ownerOnly,
	}
	handlers["ping"] = RegisteredHandler{
		Usage:       "ping",
		Description: "Check that the self-bot is alive.",
		Handler:     NewPingHandler(deps),
		Middleware:  ownerOnly,
	}
	handlers["help"] = RegisteredHandler{
		Usage:       "help",
		Description: "List the available commands.",
		Handler:     NewHelpHandler(deps, handlers),
		Middleware:  ownerOnly,
	}

	return handlers
}

// sortedNames returns the registered command names in a stable order.
func sortedNames(registered map[string]RegisteredHandler) []string {
	return slices.Sorted(maps.Keys(registered))
}
