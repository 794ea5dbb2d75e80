// Package events defines the typed events the gateway adapter hands to the dispatcher.
// Every event is one of the concrete types below; consumers switch on the type.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/swgoh/prereqbot/pkg/failure"
)

// Kind identifies the event for logs and taps.
type Kind string

const (
	KindReady            Kind = "gateway.ready"
	KindGuildAvailable   Kind = "guild.available"
	KindCommandSucceeded Kind = "command.succeeded"
	KindCommandFailed    Kind = "command.failed"
)

// Target is where an event came from, and where a reply to it goes.
type Target struct {
	GuildID   string `json:"guild_id,omitempty"`
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id,omitempty"`
}

// Header is common to all events.
type Header struct {
	ID         string    `json:"id"`
	ReceivedAt time.Time `json:"received_at"`
	Origin     Target    `json:"origin"`
}

// NewHeader stamps a new event received from origin.
func NewHeader(origin Target) Header {
	return Header{
		ID:         uuid.NewString(),
		ReceivedAt: time.Now().UTC(),
		Origin:     origin,
	}
}

// Head returns the header. Promoted to every event type.
func (h Header) Head() Header { return h }

// Event is implemented by Ready, GuildAvailable, CommandSucceeded and CommandFailed.
type Event interface {
	Kind() Kind
	Head() Header
}

// Ready is sent once the gateway session is established.
type Ready struct {
	Header
	UserName string `json:"user_name,omitempty"`
}

// GuildAvailable is sent for each guild the bot is a member of, after Ready
// and whenever a guild becomes available again.
type GuildAvailable struct {
	Header
	GuildName string `json:"guild_name"`
}

// CommandSucceeded is sent after a command ran without error.
type CommandSucceeded struct {
	Header
	UserName    string `json:"user_name"`
	CommandName string `json:"command_name"`
}

// CommandFailed is sent when a command could not run. CommandName is empty when
// the invocation did not name a known command.
type CommandFailed struct {
	Header
	UserName    string       `json:"user_name"`
	CommandName string       `json:"command_name,omitempty"`
	Err         error        `json:"-"`
	Data        failure.Data `json:"-"`
}

// NewCommandFailed builds a CommandFailed event, lifting the payload out of err.
func NewCommandFailed(origin Target, user, command string, err error) CommandFailed {
	return CommandFailed{
		Header:      NewHeader(origin),
		UserName:    user,
		CommandName: command,
		Err:         err,
		Data:        failure.DataOf(err),
	}
}

// Message is the failure message, or a placeholder when there is none.
func (e CommandFailed) Message() string {
	if e.Err == nil || e.Err.Error() == "" {
		return "<no message>"
	}
	return e.Err.Error()
}

func (Ready) Kind() Kind            { return KindReady }
func (GuildAvailable) Kind() Kind   { return KindGuildAvailable }
func (CommandSucceeded) Kind() Kind { return KindCommandSucceeded }
func (CommandFailed) Kind() Kind    { return KindCommandFailed }
