package domoai

import (
	"context"
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/haojie06/domoai-http/internal/logger"
)

// ResultWatcher classifies edited bot messages and drives the one terminal
// task transition. Rules are evaluated in declaration order: embed titles are
// checked by prefix before the plain-text fallbacks, because /real would
// otherwise shadow /real-2 style titles and untitled results would never be
// reached. Do not reorder.
type ResultWatcher struct {
	store    *TaskStore
	callback *EventCallback
	rules    []watchRule
	logger   *logger.CustomLogger
}

type watchRule struct {
	match  func(*discordgo.Message) bool
	handle func(context.Context, *discordgo.Message)
}

func NewResultWatcher(store *TaskStore, callback *EventCallback) *ResultWatcher {
	w := &ResultWatcher{
		store:    store,
		callback: callback,
		logger:   logger.NewCustomLogger().With("component", "watcher"),
	}
	w.rules = []watchRule{
		{
			match: embedTitleHasPrefix("/gen"),
			handle: func(ctx context.Context, message *discordgo.Message) {
				w.handleImageResult(ctx, TaskCommandGen, message)
			},
		},
		{
			match: embedTitleHasPrefix("/real"),
			handle: func(ctx context.Context, message *discordgo.Message) {
				w.handleImageResult(ctx, TaskCommandReal, message)
			},
		},
		{
			match: embedTitleIs("/animate"),
			handle: func(ctx context.Context, message *discordgo.Message) {
				w.handleAnimateResult(ctx, message)
			},
		},
		{
			match: embedTitleIs("/video"),
			handle: func(ctx context.Context, message *discordgo.Message) {
				w.handleVideoResult(ctx, message)
			},
		},
		{
			match: embedTitleIs("/move"),
			handle: func(ctx context.Context, message *discordgo.Message) {
				w.handleMoveResult(ctx, message)
			},
		},
		{
			match: func(message *discordgo.Message) bool {
				return len(message.Embeds) == 0 &&
					strings.Contains(message.Content, "After:") &&
					strings.Contains(message.Content, "Before:")
			},
			handle: func(ctx context.Context, message *discordgo.Message) {
				w.handleVideoResult(ctx, message)
			},
		},
		{
			match: func(message *discordgo.Message) bool {
				return len(message.Embeds) == 0 &&
					strings.Contains(message.Content, "Result:") &&
					strings.Contains(message.Content, "Image:") &&
					strings.Contains(message.Content, "Video:")
			},
			handle: func(ctx context.Context, message *discordgo.Message) {
				w.handleMoveResult(ctx, message)
			},
		},
	}
	return w
}

func embedTitleHasPrefix(prefix string) func(*discordgo.Message) bool {
	return func(message *discordgo.Message) bool {
		return len(message.Embeds) > 0 && strings.HasPrefix(message.Embeds[0].Title, prefix)
	}
}

func embedTitleIs(title string) func(*discordgo.Message) bool {
	return func(message *discordgo.Message) bool {
		return len(message.Embeds) > 0 && message.Embeds[0].Title == title
	}
}

// HandleMessageEdit runs the first matching rule, if any. Edits that match no
// rule, and matched edits whose message is not bound to a task, are silently
// ignored; most of the channel's traffic is unrelated bot chatter.
func (w *ResultWatcher) HandleMessageEdit(message *discordgo.Message) {
	ctx := context.Background()
	for _, rule := range w.rules {
		if rule.match(message) {
			rule.handle(ctx, message)
			return
		}
	}
}

// resolveTask maps the edited message back to its owning task.
func (w *ResultWatcher) resolveTask(ctx context.Context, message *discordgo.Message) (string, bool) {
	taskId, found := w.store.ResolveTaskForMessage(ctx, message.ID)
	if !found {
		w.logger.Debugf("no task bound to edited message %s", message.ID)
	}
	return taskId, found
}

// complete persists the terminal state and notifies. Notification is
// best-effort and must never delay or fail the transition, hence the
// goroutine.
func (w *ResultWatcher) complete(ctx context.Context, taskId string, data TaskCacheData) {
	if err := w.store.SaveTask(ctx, taskId, data); err != nil {
		w.logger.Errorf("failed to persist task %s result: %s", taskId, err)
		return
	}
	w.logger.Infof("task %s succeeded, command: %s", taskId, data.Command)
	go w.callback.SendTaskSuccess(taskId, data)
}

// GEN and REAL results carry the produced image plus the currently enabled
// upscale/vary buttons.
func (w *ResultWatcher) handleImageResult(ctx context.Context, command TaskCommand, message *discordgo.Message) {
	if len(message.Attachments) == 0 {
		return
	}
	taskId, found := w.resolveTask(ctx, message)
	if !found {
		return
	}
	upscaleCustomIds, varyCustomIds := extractActionCustomIds(message)
	w.complete(ctx, taskId, TaskCacheData{
		Command:          command,
		ChannelId:        message.ChannelID,
		GuildId:          message.GuildID,
		MessageId:        message.ID,
		Status:           TaskStatusSuccess,
		Images:           []TaskAsset{assetFromAttachment(message.Attachments[0])},
		UpscaleCustomIds: upscaleCustomIds,
		VaryCustomIds:    varyCustomIds,
	})
}

func (w *ResultWatcher) handleAnimateResult(ctx context.Context, message *discordgo.Message) {
	if len(message.Attachments) == 0 {
		return
	}
	taskId, found := w.resolveTask(ctx, message)
	if !found {
		return
	}
	w.complete(ctx, taskId, TaskCacheData{
		Command:   TaskCommandAnimate,
		ChannelId: message.ChannelID,
		GuildId:   message.GuildID,
		MessageId: message.ID,
		Status:    TaskStatusSuccess,
		Videos:    []TaskAsset{assetFromAttachment(message.Attachments[0])},
	})
}

func (w *ResultWatcher) handleVideoResult(ctx context.Context, message *discordgo.Message) {
	w.handleTextFallbackVideo(ctx, TaskCommandVideo, videoResultURLRe, message)
}

func (w *ResultWatcher) handleMoveResult(ctx context.Context, message *discordgo.Message) {
	w.handleTextFallbackVideo(ctx, TaskCommandMove, moveResultURLRe, message)
}

// video-family results either attach the clip or only mention its url in the
// message body; the synthesized asset then has url == proxy_url.
func (w *ResultWatcher) handleTextFallbackVideo(ctx context.Context, command TaskCommand, urlRe *regexp.Regexp, message *discordgo.Message) {
	taskId, found := w.resolveTask(ctx, message)
	if !found {
		return
	}
	var asset TaskAsset
	if len(message.Attachments) > 0 {
		asset = assetFromAttachment(message.Attachments[0])
	} else {
		url, ok := extractResultURL(urlRe, message.Content)
		if !ok {
			return
		}
		asset = TaskAsset{URL: url, ProxyURL: url}
	}
	w.complete(ctx, taskId, TaskCacheData{
		Command:   command,
		ChannelId: message.ChannelID,
		GuildId:   message.GuildID,
		MessageId: message.ID,
		Status:    TaskStatusSuccess,
		Videos:    []TaskAsset{asset},
	})
}
