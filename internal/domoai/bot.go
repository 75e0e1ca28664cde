package domoai

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/haojie06/domoai-http/internal/logger"
)

type DomoBotConfig struct {
	DiscordToken      string `mapstructure:"discordToken"`
	DiscordGuildId    string `mapstructure:"discordGuildId"`
	DiscordChannelId  string `mapstructure:"discordChannelId"`
	DiscordSessionId  string `mapstructure:"discordSessionId"`
	DomoApplicationId string `mapstructure:"domoApplicationId"` // domoai bot application id
}

// DomoBot owns the single gateway connection and everything that talks to the
// platform: slash-command dispatch, button clicks, attachment upload, and the
// message-edit stream feeding the result watcher.
type DomoBot struct {
	config DomoBotConfig

	discordSession *discordgo.Session

	// populated once before the gateway opens, read-only afterwards
	discordCommands map[string]*discordgo.ApplicationCommand

	store *TaskStore

	watcher *ResultWatcher

	httpClient *http.Client

	messageWaiters     map[int64]*messageWaiter
	nextWaiterId       int64
	interactionWaiters map[string]chan struct{}
	waitersLock        sync.Mutex

	logger *logger.CustomLogger
}

type messageWaiter struct {
	check func(*discordgo.Message) bool
	ch    chan *discordgo.Message
}

func NewDomoBot(config DomoBotConfig, store *TaskStore, watcher *ResultWatcher) (*DomoBot, error) {
	ds, err := discordgo.New(config.DiscordToken)
	if err != nil {
		return nil, err
	}
	bot := &DomoBot{
		config:             config,
		discordSession:     ds,
		discordCommands:    make(map[string]*discordgo.ApplicationCommand),
		store:              store,
		watcher:            watcher,
		httpClient:         &http.Client{Timeout: 30 * time.Second},
		messageWaiters:     make(map[int64]*messageWaiter),
		interactionWaiters: make(map[string]chan struct{}),
		logger:             logger.NewCustomLogger().With("component", "domobot"),
	}
	commands, err := ds.ApplicationCommands(config.DomoApplicationId, "")
	if err != nil {
		return nil, err
	}
	for _, command := range commands {
		bot.discordCommands[command.Name] = command
	}
	bot.logger.Infof("discovered %d slash commands", len(bot.discordCommands))

	bot.discordSession.AddHandler(bot.onDiscordMessageCreate)
	bot.discordSession.AddHandler(bot.onDiscordMessageUpdate)
	bot.discordSession.AddHandler(bot.onDiscordGatewayEvent)
	bot.discordSession.Identify.Intents = discordgo.IntentsAll
	if err := bot.discordSession.Open(); err != nil {
		return nil, err
	}
	return bot, nil
}

func (bot *DomoBot) Close() error {
	return bot.discordSession.Close()
}

// message create events only feed the one-shot acceptance waiters
func (bot *DomoBot) onDiscordMessageCreate(s *discordgo.Session, event *discordgo.MessageCreate) {
	if bot.config.DiscordGuildId != "" && event.GuildID != "" && event.GuildID != bot.config.DiscordGuildId {
		return
	}
	bot.waitersLock.Lock()
	defer bot.waitersLock.Unlock()
	for id, waiter := range bot.messageWaiters {
		if waiter.check(event.Message) {
			waiter.ch <- event.Message
			delete(bot.messageWaiters, id)
			return
		}
	}
}

// message edit events drive the result watcher; only the bot's own edits are
// interesting, everything else is channel chatter
func (bot *DomoBot) onDiscordMessageUpdate(s *discordgo.Session, event *discordgo.MessageUpdate) {
	if bot.config.DiscordGuildId != "" && event.GuildID != "" && event.GuildID != bot.config.DiscordGuildId {
		return
	}
	if event.Message == nil || event.Message.Author == nil {
		return
	}
	if event.Message.Author.ID != bot.config.DomoApplicationId {
		return
	}
	bot.watcher.HandleMessageEdit(event.Message)
}

// interaction acknowledgments for user accounts arrive as raw gateway events
// that discordgo has no typed dispatch for, so they are picked off the
// untyped event stream by nonce
func (bot *DomoBot) onDiscordGatewayEvent(s *discordgo.Session, event *discordgo.Event) {
	if event.Type != "INTERACTION_SUCCESS" && event.Type != "INTERACTION_CREATE" {
		return
	}
	var ack struct {
		Id    string `json:"id"`
		Nonce string `json:"nonce"`
	}
	if err := json.Unmarshal(event.RawData, &ack); err != nil || ack.Nonce == "" {
		return
	}
	bot.waitersLock.Lock()
	defer bot.waitersLock.Unlock()
	if ch, exist := bot.interactionWaiters[ack.Nonce]; exist {
		close(ch)
		delete(bot.interactionWaiters, ack.Nonce)
	}
}

// waitForMessage blocks until a message matching check arrives or the timeout
// passes. The subscription is one-shot and is always removed, matched or not.
func (bot *DomoBot) waitForMessage(check func(*discordgo.Message) bool, timeout time.Duration) (*discordgo.Message, error) {
	waiter := &messageWaiter{
		check: check,
		ch:    make(chan *discordgo.Message, 1),
	}
	bot.waitersLock.Lock()
	bot.nextWaiterId++
	id := bot.nextWaiterId
	bot.messageWaiters[id] = waiter
	bot.waitersLock.Unlock()

	select {
	case message := <-waiter.ch:
		return message, nil
	case <-time.After(timeout):
		bot.waitersLock.Lock()
		delete(bot.messageWaiters, id)
		bot.waitersLock.Unlock()
		return nil, ErrAcceptanceTimeout
	}
}

// registerInteractionWaiter subscribes to the acknowledgment for nonce. It
// must be called before the interaction is sent; an ack can arrive before the
// POST even returns.
func (bot *DomoBot) registerInteractionWaiter(nonce string) chan struct{} {
	ch := make(chan struct{})
	bot.waitersLock.Lock()
	bot.interactionWaiters[nonce] = ch
	bot.waitersLock.Unlock()
	return ch
}

func (bot *DomoBot) removeInteractionWaiter(nonce string) {
	bot.waitersLock.Lock()
	delete(bot.interactionWaiters, nonce)
	bot.waitersLock.Unlock()
}

// waitForInteractionAck blocks until the previously registered waiter fires or
// the timeout passes.
func (bot *DomoBot) waitForInteractionAck(ch chan struct{}, nonce string, timeout time.Duration) error {
	select {
	case <-ch:
		return nil
	case <-time.After(timeout):
		bot.removeInteractionWaiter(nonce)
		return ErrInteractionTimeout
	}
}

// nonces are generated from every request-handling goroutine, so this uses the
// locked top-level source rather than an unguarded *rand.Rand
func (bot *DomoBot) generateNonce() string {
	return strconv.FormatInt(rand.Int63(), 10)
}

func (bot *DomoBot) selfUserId() string {
	if bot.discordSession.State != nil && bot.discordSession.State.User != nil {
		return bot.discordSession.State.User.ID
	}
	return ""
}
