package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swgoh/prereqbot/pkg/failure"
)

func TestCommandFailedCarriesPayload(t *testing.T) {
	data := failure.Data{{Key: failure.AllyCodeKey, Value: "12AB"}}
	err := failure.New(failure.ErrInvalidArgument, "ally code must be 9 digits", data)

	ev := NewCommandFailed(Target{ChannelID: "c1"}, "Alice", "reqs", err)
	assert.Equal(t, KindCommandFailed, ev.Kind())
	assert.Equal(t, data, ev.Data)
	assert.Equal(t, "c1", ev.Head().Origin.ChannelID)
	assert.NotEmpty(t, ev.Head().ID)
	assert.Contains(t, ev.Message(), "ally code must be 9 digits")
}

func TestCommandFailedMessageFallback(t *testing.T) {
	assert.Equal(t, "<no message>", CommandFailed{}.Message())
	assert.Equal(t, "<no message>", CommandFailed{Err: errors.New("")}.Message())

	ev := NewCommandFailed(Target{}, "Bob", "", errors.New("boom"))
	assert.Nil(t, ev.Data)
	assert.Equal(t, "boom", ev.Message())
}

func TestKinds(t *testing.T) {
	all := []Event{Ready{}, GuildAvailable{}, CommandSucceeded{}, CommandFailed{}}
	seen := make(map[Kind]bool)
	for _, ev := range all {
		require.NotEmpty(t, ev.Kind())
		seen[ev.Kind()] = true
	}
	assert.Len(t, seen, len(all))
}
