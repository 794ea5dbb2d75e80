package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/swgoh/prereqbot/pkg/allycode"
	"github.com/swgoh/prereqbot/pkg/config"
	"github.com/swgoh/prereqbot/pkg/failure"
	"github.com/swgoh/prereqbot/pkg/logger"
	"github.com/swgoh/prereqbot/pkg/response"
)

// ConfigSource is the configuration the built-in commands read and reload.
type ConfigSource interface {
	Current() (config.Config, error)
	Reload() (config.Config, error)
}

// Builtins returns the bot's command table.
// manageGuild is the permission bit required by admin commands.
func Builtins(reg *Registry, cfg ConfigSource, resolve PermissionResolver, manageGuild int64) []Command {
	return []Command{
		{
			Name:        "reqs",
			Aliases:     []string{"prereqs"},
			Description: "Show what a player still needs to unlock a character.",
			Params:      []string{"character", failure.AllyCodeKey},
			Run:         runReqs,
		},
		{
			Name:        "help",
			Description: "List the available commands.",
			Run: func(ctx context.Context, inv Invocation) error {
				c, err := cfg.Current()
				if err != nil {
					logger.WarnCF("commands", "No configuration for help, listing commands without a prefix", map[string]interface{}{
						"error": err,
					})
				}
				return inv.Reply(ctx, helpResponse(reg, c.Prefix))
			},
		},
		{
			Name:        "reload",
			Description: "Re-read the bot configuration.",
			Checks:      []Check{RequirePermissions(manageGuild, resolve)},
			Run: func(ctx context.Context, inv Invocation) error {
				c, err := cfg.Reload()
				if err != nil {
					return fmt.Errorf("reload configuration: %w", err)
				}
				return inv.Reply(ctx, response.Response{
					Title:    "Configuration reloaded",
					Body:     fmt.Sprintf("Command prefix is now `%s`.", c.Prefix),
					Severity: response.SeverityInfo,
				})
			},
		},
	}
}

// runReqs takes the ally code as the last argument so multi-word character
// names ("general kenobi") need no quoting.
func runReqs(ctx context.Context, inv Invocation) error {
	last := len(inv.Args) - 1
	character := strings.Join(inv.Args[:last], " ")
	rawCode := inv.Args[last]

	data := failure.Data{
		{Key: "character", Value: character},
		{Key: failure.AllyCodeKey, Value: rawCode},
	}
	code, err := allycode.Parse(rawCode)
	if err != nil {
		return failure.New(failure.ErrInvalidArgument, err.Error(), data)
	}

	return inv.Reply(ctx, response.Response{
		Title:    "Prerequisites",
		Body:     fmt.Sprintf("Looking up %s for ally code %s.", character, code),
		Severity: response.SeverityInfo,
	})
}

func helpResponse(reg *Registry, prefix string) response.Response {
	var b strings.Builder
	for i, c := range reg.All() {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "`%s` %s", c.Usage(prefix), c.Description)
	}
	return response.Response{Title: "Commands", Body: b.String(), Severity: response.SeverityInfo}
}
