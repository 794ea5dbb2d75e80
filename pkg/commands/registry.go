// Package commands is the prefix command router the Discord adapter feeds
// messages into. It decides which command a message names, runs its checks
// and reports the outcome as a typed failure.
package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/swgoh/prereqbot/pkg/failure"
	"github.com/swgoh/prereqbot/pkg/response"
)

// Invocation is one parsed command message.
type Invocation struct {
	Name      string
	Args      []string
	UserID    string
	UserName  string
	GuildID   string
	ChannelID string
	MessageID string

	// Reply answers in the channel the command came from.
	Reply func(ctx context.Context, r response.Response) error
}

// Check gates a command. A failing check should return a failure.ErrChecksFailed error.
type Check func(ctx context.Context, inv Invocation) error

// Handler runs a command.
type Handler func(ctx context.Context, inv Invocation) error

// Command describes a registered command.
type Command struct {
	Name        string
	Aliases     []string
	Description string
	// Params names the required positional arguments, in order.
	Params []string
	Checks []Check
	Run    Handler
}

// Usage renders "<prefix>name <param> ...".
func (c *Command) Usage(prefix string) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(c.Name)
	for _, p := range c.Params {
		fmt.Fprintf(&b, " <%s>", p)
	}
	return b.String()
}

// Registry maps command names and aliases to commands.
type Registry struct {
	byName map[string]*Command
	cmds   []*Command
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Command)}
}

// Register adds cmd. Names and aliases are case-insensitive and must be unique.
func (r *Registry) Register(cmd Command) error {
	if cmd.Name == "" || cmd.Run == nil {
		return fmt.Errorf("register command %q: name and handler are required", cmd.Name)
	}
	c := &cmd
	names := append([]string{cmd.Name}, cmd.Aliases...)
	for _, n := range names {
		if _, exists := r.byName[strings.ToLower(n)]; exists {
			return fmt.Errorf("register command %q: %q already registered", cmd.Name, n)
		}
	}
	for _, n := range names {
		r.byName[strings.ToLower(n)] = c
	}
	r.cmds = append(r.cmds, c)
	return nil
}

// MustRegister is Register for static command tables.
func (r *Registry) MustRegister(cmds ...Command) {
	for _, cmd := range cmds {
		if err := r.Register(cmd); err != nil {
			panic(err)
		}
	}
}

// Lookup finds a command by name or alias.
func (r *Registry) Lookup(name string) (*Command, bool) {
	c, ok := r.byName[strings.ToLower(name)]
	return c, ok
}

// All returns the registered commands sorted by name.
func (r *Registry) All() []*Command {
	out := append([]*Command(nil), r.cmds...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Execute runs the command inv names. It returns the canonical command name,
// empty when no command matched, and the command's failure if any.
func (r *Registry) Execute(ctx context.Context, inv Invocation) (string, error) {
	cmd, ok := r.Lookup(inv.Name)
	if !ok {
		return "", failure.New(failure.ErrCommandNotFound, fmt.Sprintf("%q is not a command", inv.Name), nil)
	}

	for _, check := range cmd.Checks {
		if err := check(ctx, inv); err != nil {
			return cmd.Name, err
		}
	}

	if len(inv.Args) < len(cmd.Params) {
		var data failure.Data
		for i, p := range cmd.Params {
			v := ""
			if i < len(inv.Args) {
				v = inv.Args[i]
			}
			data.Set(p, v)
		}
		return cmd.Name, failure.New(failure.ErrMissingArguments,
			fmt.Sprintf("expected %d arguments, got %d", len(cmd.Params), len(inv.Args)), data)
	}

	if err := cmd.Run(ctx, inv); err != nil {
		return cmd.Name, err
	}
	return cmd.Name, nil
}

// Parse splits a message into a command name and arguments. A message is a
// command when it starts with prefix or with one of the mention strings.
func Parse(content, prefix string, mentions ...string) (name string, args []string, ok bool) {
	content = strings.TrimSpace(content)

	rest, matched := "", false
	if prefix != "" && strings.HasPrefix(content, prefix) {
		rest, matched = content[len(prefix):], true
	}
	if !matched {
		for _, m := range mentions {
			if m != "" && strings.HasPrefix(content, m) {
				rest, matched = content[len(m):], true
				break
			}
		}
	}
	if !matched {
		return "", nil, false
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}
