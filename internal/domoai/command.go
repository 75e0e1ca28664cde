package domoai

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
)

const (
	// image-family and video-family commands acknowledge with different
	// embed descriptions
	acceptanceKeywordImage = "Waiting to start"
	acceptanceKeywordVideo = "Generating"

	acceptanceTimeout = 20 * time.Second
)

// UploadFile is one multipart file destined for a command attachment option.
type UploadFile struct {
	Filename    string
	Size        int
	ContentType string
	Reader      io.Reader
}

type dispatchAttachment struct {
	optionName string
	file       UploadFile
}

type GenParams struct {
	Prompt string
	Image  *UploadFile
	Mode   string
	Model  string
}

type RealParams struct {
	Image  UploadFile
	Prompt string
	Mode   string
}

type AnimateParams struct {
	Image     UploadFile
	Length    string
	Intensity string
	Prompt    string
	Mode      string
}

type VideoParams struct {
	Video     UploadFile
	Model     string
	ReferMode VideoReferMode
	Length    string
	Prompt    string
	Mode      string
}

type MoveParams struct {
	Image  UploadFile
	Video  UploadFile
	Model  string
	Length string
	Prompt string
	Mode   string
}

// prompt assembly: flag tokens are appended in a fixed order because the
// platform parses them positionally; reordering breaks compatibility

func assembleGenPrompt(prompt, mode, model string) string {
	requestPrompt := prompt
	if mode != "" {
		requestPrompt += " --" + mode
	}
	if model != "" {
		requestPrompt += " --" + model
	}
	return requestPrompt
}

func assembleRealPrompt(prompt, mode string) string {
	parts := make([]string, 0, 2)
	if prompt != "" {
		parts = append(parts, prompt)
	}
	if mode != "" {
		parts = append(parts, "--"+mode)
	}
	return strings.Join(parts, " ")
}

func assembleAnimatePrompt(prompt, intensity, length, mode string) string {
	requestPrompt := fmt.Sprintf("--intensity %s --length %s", intensity, length)
	if prompt != "" {
		requestPrompt = prompt + " " + requestPrompt
	}
	if mode != "" {
		requestPrompt += " --" + mode
	}
	return requestPrompt
}

func assembleVideoPrompt(prompt, model string, referMode VideoReferMode, length, mode string) string {
	requestPrompt := fmt.Sprintf("%s --%s --refer %s --length %s", prompt, model, referMode.flagValue(), length)
	if mode != "" {
		requestPrompt += " --" + mode
	}
	return requestPrompt
}

func assembleMovePrompt(prompt, model, length, mode string) string {
	requestPrompt := fmt.Sprintf("%s --%s --length %s", prompt, model, length)
	if mode != "" {
		requestPrompt += " --" + mode
	}
	return requestPrompt
}

func (bot *DomoBot) Gen(ctx context.Context, params GenParams) (*TaskCreation, error) {
	var attachments []dispatchAttachment
	if params.Image != nil {
		attachments = append(attachments, dispatchAttachment{optionName: "img2img", file: *params.Image})
	}
	prompt := assembleGenPrompt(params.Prompt, params.Mode, params.Model)
	return bot.dispatch(ctx, TaskCommandGen, "gen", prompt, attachments, acceptanceKeywordImage)
}

func (bot *DomoBot) Real(ctx context.Context, params RealParams) (*TaskCreation, error) {
	attachments := []dispatchAttachment{{optionName: "image", file: params.Image}}
	prompt := assembleRealPrompt(params.Prompt, params.Mode)
	return bot.dispatch(ctx, TaskCommandReal, "real", prompt, attachments, acceptanceKeywordImage)
}

func (bot *DomoBot) Animate(ctx context.Context, params AnimateParams) (*TaskCreation, error) {
	attachments := []dispatchAttachment{{optionName: "image", file: params.Image}}
	prompt := assembleAnimatePrompt(params.Prompt, params.Intensity, params.Length, params.Mode)
	return bot.dispatch(ctx, TaskCommandAnimate, "animate", prompt, attachments, acceptanceKeywordVideo)
}

func (bot *DomoBot) Video(ctx context.Context, params VideoParams) (*TaskCreation, error) {
	attachments := []dispatchAttachment{{optionName: "video", file: params.Video}}
	prompt := assembleVideoPrompt(params.Prompt, params.Model, params.ReferMode, params.Length, params.Mode)
	return bot.dispatch(ctx, TaskCommandVideo, "video", prompt, attachments, acceptanceKeywordVideo)
}

func (bot *DomoBot) Move(ctx context.Context, params MoveParams) (*TaskCreation, error) {
	attachments := []dispatchAttachment{
		{optionName: "image", file: params.Image},
		{optionName: "video", file: params.Video},
	}
	prompt := assembleMovePrompt(params.Prompt, params.Model, params.Length, params.Mode)
	return bot.dispatch(ctx, TaskCommandMove, "move", prompt, attachments, acceptanceKeywordVideo)
}

// dispatch uploads the attachments, fires the slash command and waits for the
// acceptance message. Only an accepted dispatch creates task state.
func (bot *DomoBot) dispatch(ctx context.Context, command TaskCommand, slashName, prompt string, attachments []dispatchAttachment, acceptanceKeyword string) (*TaskCreation, error) {
	options := make([]*discordgo.ApplicationCommandInteractionDataOption, 0, len(attachments)+1)
	if prompt != "" {
		options = append(options, &discordgo.ApplicationCommandInteractionDataOption{
			Type:  discordgo.ApplicationCommandOptionString,
			Name:  "prompt",
			Value: prompt,
		})
	}
	commandAttachments := make([]AttachmentInCommand, 0, len(attachments))
	for i, attachment := range attachments {
		attachmentId := fmt.Sprintf("%d", i)
		uploadedFilename, err := bot.uploadAttachment(attachment.file.Filename, attachmentId, attachment.file.ContentType, attachment.file.Size, attachment.file.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to upload %s attachment: %w", attachment.optionName, err)
		}
		options = append(options, &discordgo.ApplicationCommandInteractionDataOption{
			Type:  discordgo.ApplicationCommandOptionAttachment,
			Name:  attachment.optionName,
			Value: i,
		})
		commandAttachments = append(commandAttachments, AttachmentInCommand{
			Id:               attachmentId,
			Filename:         attachment.file.Filename,
			UploadedFilename: uploadedFilename,
		})
	}

	status, err := bot.executeSlashCommand(slashName, options, commandAttachments)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		bot.logger.Warnf("/%s dispatch rejected, status code: %d", slashName, status)
		return &TaskCreation{Success: false}, nil
	}

	message, err := bot.waitForAcceptance(acceptanceKeyword)
	if err != nil {
		return nil, fmt.Errorf("/%s: %w", slashName, err)
	}

	taskId := uuid.New().String()
	if err := bot.store.BindMessage(ctx, message.ID, taskId); err != nil {
		return nil, err
	}
	if err := bot.store.SaveTask(ctx, taskId, TaskCacheData{
		Command:   command,
		ChannelId: bot.config.DiscordChannelId,
		GuildId:   bot.config.DiscordGuildId,
		MessageId: message.ID,
		Status:    TaskStatusRunning,
	}); err != nil {
		return nil, err
	}
	bot.logger.Infof("task %s is running, command: %s, message: %s", taskId, command, message.ID)
	return &TaskCreation{
		Success:   true,
		TaskId:    taskId,
		MessageId: message.ID,
	}, nil
}

// the acceptance message is an embed from the bot mentioning the requesting
// user, with a family-specific description keyword
func (bot *DomoBot) waitForAcceptance(keyword string) (*discordgo.Message, error) {
	selfId := bot.selfUserId()
	return bot.waitForMessage(func(message *discordgo.Message) bool {
		if len(message.Embeds) == 0 || len(message.Mentions) == 0 {
			return false
		}
		if message.Mentions[0].ID != selfId {
			return false
		}
		return strings.Contains(message.Embeds[0].Description, keyword)
	}, acceptanceTimeout)
}

func (bot *DomoBot) Upscale(ctx context.Context, taskId string, index int) (*TaskCreation, error) {
	return bot.followUpAction(ctx, taskId, index, "U")
}

func (bot *DomoBot) Vary(ctx context.Context, taskId string, index int) (*TaskCreation, error) {
	return bot.followUpAction(ctx, taskId, index, "V")
}

// followUpAction clicks an upscale/vary button on a finished GEN/REAL task.
// The follow-up always resolves through the image-generation pipeline, so the
// new task is tagged GEN.
func (bot *DomoBot) followUpAction(ctx context.Context, taskId string, index int, labelPrefix string) (*TaskCreation, error) {
	data, found := bot.store.GetTask(ctx, taskId)
	if !found {
		return nil, ErrTaskNotFound
	}
	customIds := data.UpscaleCustomIds
	if labelPrefix == "V" {
		customIds = data.VaryCustomIds
	}
	label := fmt.Sprintf("%s%d", labelPrefix, index)
	customId, available := customIds[label]
	if !available {
		return nil, ErrActionNotAvailable
	}

	status, err := bot.clickButton(customId, data.MessageId)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		bot.logger.Warnf("task %s %s click rejected, status code: %d", taskId, label, status)
		return &TaskCreation{Success: false}, nil
	}

	message, err := bot.waitForAcceptance(acceptanceKeywordImage)
	if err != nil {
		return nil, fmt.Errorf("%s on task %s: %w", label, taskId, err)
	}

	newTaskId := uuid.New().String()
	if err := bot.store.BindMessage(ctx, message.ID, newTaskId); err != nil {
		return nil, err
	}
	if err := bot.store.SaveTask(ctx, newTaskId, TaskCacheData{
		Command:   TaskCommandGen,
		ChannelId: bot.config.DiscordChannelId,
		GuildId:   bot.config.DiscordGuildId,
		MessageId: message.ID,
		Status:    TaskStatusRunning,
	}); err != nil {
		return nil, err
	}
	bot.logger.Infof("follow-up task %s (%s of %s) is running, message: %s", newTaskId, label, taskId, message.ID)
	return &TaskCreation{
		Success:   true,
		TaskId:    newTaskId,
		MessageId: message.ID,
	}, nil
}

// TaskData is the polling read path.
func (bot *DomoBot) TaskData(ctx context.Context, taskId string) (*TaskDataView, error) {
	data, found := bot.store.GetTask(ctx, taskId)
	if !found {
		return nil, ErrTaskNotFound
	}
	view := NewTaskDataView(*data)
	return &view, nil
}
