// Package discord connects the bot to the Discord gateway. It turns gateway
// events into events.Event values on the bus and delivers responses back.
package discord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"

	"github.com/swgoh/prereqbot/pkg/commands"
	"github.com/swgoh/prereqbot/pkg/config"
	"github.com/swgoh/prereqbot/pkg/events"
	"github.com/swgoh/prereqbot/pkg/logger"
	"github.com/swgoh/prereqbot/pkg/response"
)

const component = "discord"

// Intents the bot needs: guild lifecycle, guild and DM messages, and message content
// so prefix commands can be read.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsMessageContent

// Publisher accepts events for the dispatcher.
type Publisher interface {
	Publish(ctx context.Context, ev events.Event) error
}

// PrefixSource supplies the current command prefix.
type PrefixSource interface {
	Current() (config.Config, error)
}

// restClient is the subset of *discordgo.Session used after connecting.
type restClient interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error)
}

// Gateway owns the discordgo session.
type Gateway struct {
	session  *discordgo.Session
	rest     restClient
	bus      Publisher
	cfg      PrefixSource
	registry *commands.Registry

	botID   atomic.Value // string, set on Ready
	ctx     context.Context
	cancel  context.CancelFunc
	removes []func()
	mu      sync.Mutex
}

// New creates a gateway for the bot token. Nothing is opened until Open.
func New(token string, bus Publisher, cfg PrefixSource, registry *commands.Registry) (*Gateway, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = Intents
	s.ShouldReconnectOnError = true
	s.LogLevel = discordgo.LogWarning

	g := newGateway(s, bus, cfg, registry)
	g.session = s
	return g, nil
}

func newGateway(rest restClient, bus Publisher, cfg PrefixSource, registry *commands.Registry) *Gateway {
	ctx, cancel := context.WithCancel(context.Background())
	g := &Gateway{
		rest:     rest,
		bus:      bus,
		cfg:      cfg,
		registry: registry,
		ctx:      ctx,
		cancel:   cancel,
	}
	g.botID.Store("")
	return g
}

// Permissions resolves a user's channel permissions. It is the
// commands.PermissionResolver for this gateway.
func (g *Gateway) Permissions(ctx context.Context, userID, channelID string) (int64, error) {
	return g.rest.UserChannelPermissions(userID, channelID, discordgo.WithContext(ctx))
}

// Open registers the event handlers and connects to the gateway.
func (g *Gateway) Open() error {
	if g.session == nil {
		return errors.New("discord: gateway has no session")
	}
	g.mu.Lock()
	g.removes = append(g.removes,
		g.session.AddHandler(g.onReady),
		g.session.AddHandler(g.onGuildCreate),
		g.session.AddHandler(g.onMessageCreate),
		g.session.AddHandler(g.onConnect),
		g.session.AddHandler(g.onDisconnect),
	)
	g.mu.Unlock()

	if err := g.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	logger.InfoC(component, "Connecting to the Discord gateway")
	return nil
}

// Close disconnects and stops publishing.
func (g *Gateway) Close() error {
	g.cancel()
	g.mu.Lock()
	for _, remove := range g.removes {
		remove()
	}
	g.removes = nil
	g.mu.Unlock()

	if g.session == nil {
		return nil
	}
	if err := g.session.Close(); err != nil {
		return fmt.Errorf("close discord session: %w", err)
	}
	return nil
}

// Send posts r as an embed replying to the message the target points at.
func (g *Gateway) Send(ctx context.Context, to events.Target, r response.Response) error {
	msg := &discordgo.MessageSend{
		Embeds:          []*discordgo.MessageEmbed{Embed(r)},
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}
	if to.MessageID != "" {
		failIfMissing := false
		msg.Reference = &discordgo.MessageReference{
			MessageID:       to.MessageID,
			ChannelID:       to.ChannelID,
			GuildID:         to.GuildID,
			FailIfNotExists: &failIfMissing,
		}
	}
	if _, err := g.rest.ChannelMessageSendComplex(to.ChannelID, msg, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send to channel %s: %w", to.ChannelID, err)
	}
	return nil
}

// Embed renders a response as a Discord embed.
func Embed(r response.Response) *discordgo.MessageEmbed {
	desc := r.Body
	if r.Severity == response.SeverityError {
		desc = "⛔ " + desc
	}
	return &discordgo.MessageEmbed{
		Title:       r.Title,
		Description: desc,
		Color:       r.Severity.Color(),
	}
}

func (g *Gateway) publish(ev events.Event) {
	if err := g.bus.Publish(g.ctx, ev); err != nil {
		logger.WarnCF(component, "Dropped gateway event", map[string]interface{}{
			"kind":  string(ev.Kind()),
			"error": err,
		})
	}
}

func (g *Gateway) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	name := ""
	if r.User != nil {
		g.botID.Store(r.User.ID)
		name = r.User.Username
	}
	g.publish(events.Ready{Header: events.NewHeader(events.Target{}), UserName: name})
}

// onGuildCreate covers both guilds becoming available after Ready and guilds
// the bot has just joined; discordgo does not tell the two apart, so both are
// published as GuildAvailable.
func (g *Gateway) onGuildCreate(_ *discordgo.Session, gc *discordgo.GuildCreate) {
	if gc.Guild == nil || gc.Unavailable {
		return
	}
	g.publish(events.GuildAvailable{
		Header:    events.NewHeader(events.Target{GuildID: gc.ID}),
		GuildName: gc.Name,
	})
}

func (g *Gateway) onConnect(_ *discordgo.Session, _ *discordgo.Connect) {
	logger.DebugC(component, "Gateway connected")
}

func (g *Gateway) onDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	logger.WarnC(component, "Gateway disconnected, discordgo will reconnect")
}

func (g *Gateway) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Message == nil || m.Author == nil || m.Author.Bot {
		return
	}

	cfg, err := g.cfg.Current()
	if err != nil {
		logger.ErrorCF(component, "No configuration to read the command prefix from", map[string]interface{}{
			"error": err,
		})
		return
	}

	botID, _ := g.botID.Load().(string)
	var mentions []string
	if botID != "" {
		mentions = []string{"<@" + botID + ">", "<@!" + botID + ">"}
	}
	name, args, ok := commands.Parse(m.Content, cfg.Prefix, mentions...)
	if !ok {
		return
	}

	origin := events.Target{GuildID: m.GuildID, ChannelID: m.ChannelID, MessageID: m.ID}
	inv := commands.Invocation{
		Name:      name,
		Args:      args,
		UserID:    m.Author.ID,
		UserName:  m.Author.Username,
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		MessageID: m.ID,
		Reply: func(ctx context.Context, r response.Response) error {
			return g.Send(ctx, origin, r)
		},
	}

	command, err := g.registry.Execute(g.ctx, inv)
	if err != nil {
		g.publish(events.NewCommandFailed(origin, inv.UserName, command, err))
		return
	}
	g.publish(events.CommandSucceeded{
		Header:      events.NewHeader(origin),
		UserName:    inv.UserName,
		CommandName: command,
	})
}
