// raw /api/v9 interaction plumbing: slash command execution, message
// component clicks and attachment uploads
package domoai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	discordInteractionsAPI = "https://discord.com/api/v9/interactions"
	discordChannelsAPI     = "https://discord.com/api/v9/channels"

	// the gateway normally answers within 3s; 12s covers reconnect hiccups
	interactionAckTimeout = 12 * time.Second
)

type InteractionRequest struct {
	Type          int                    `json:"type"`
	ApplicationID string                 `json:"application_id"`
	GuildID       string                 `json:"guild_id,omitempty"`
	ChannelID     string                 `json:"channel_id"`
	SessionID     string                 `json:"session_id"`
	Data          InteractionRequestData `json:"data"`
	Nonce         string                 `json:"nonce,omitempty"`
}

type InteractionRequestData struct {
	Version            string                                               `json:"version"`
	ID                 string                                               `json:"id"`
	Name               string                                               `json:"name"`
	Type               int                                                  `json:"type"`
	Options            []*discordgo.ApplicationCommandInteractionDataOption `json:"options"`
	ApplicationCommand *discordgo.ApplicationCommand                        `json:"application_command"`
	Attachments        []interface{}                                        `json:"attachments"`
}

type ComponentInteractionRequest struct {
	Type          int                `json:"type"`
	ApplicationID string             `json:"application_id"`
	GuildID       string             `json:"guild_id,omitempty"`
	ChannelID     string             `json:"channel_id"`
	SessionID     string             `json:"session_id"`
	MessageFlags  int                `json:"message_flags"`
	MessageID     string             `json:"message_id"`
	Data          ComponentClickData `json:"data"`
	Nonce         string             `json:"nonce,omitempty"`
}

type ComponentClickData struct {
	ComponentType int    `json:"component_type"`
	CustomID      string `json:"custom_id"`
}

type AttachmentInCommand struct {
	Id               string `json:"id"`
	Filename         string `json:"filename"`
	UploadedFilename string `json:"uploaded_filename"`
}

type AttachmentRequest struct {
	Files []AttachmentFile `json:"files"`
}

type AttachmentFile struct {
	FileName string `json:"filename"`
	FileSize int    `json:"file_size"`
	Id       string `json:"id"`
}

type AttachmentResponse struct {
	Attachments []struct {
		Id             int    `json:"id"`
		UploadURL      string `json:"upload_url"`
		UploadFilename string `json:"upload_filename"`
	} `json:"attachments"`
}

func (bot *DomoBot) sendInteractionRequest(payload interface{}) (status int, err error) {
	requestBody, err := json.Marshal(payload)
	if err != nil {
		return 500, err
	}
	request, err := http.NewRequest("POST", discordInteractionsAPI, bytes.NewBuffer(requestBody))
	if err != nil {
		return 500, err
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Authorization", bot.config.DiscordToken)

	response, err := bot.httpClient.Do(request)
	if err != nil {
		return 500, err
	}
	defer response.Body.Close()
	return response.StatusCode, nil
}

// uploadAttachment reserves an attachment slot on the channel and PUTs the
// file to the storage url discord hands back. The returned uploaded_filename
// is the opaque handle a command option can reference.
func (bot *DomoBot) uploadAttachment(filename, attachmentId, contentType string, size int, file io.Reader) (uploadedFilename string, err error) {
	attachmentAPI := fmt.Sprintf("%s/%s/attachments", discordChannelsAPI, bot.config.DiscordChannelId)
	attachmentRequest := AttachmentRequest{
		Files: []AttachmentFile{
			{
				FileName: filename,
				FileSize: size,
				Id:       attachmentId,
			},
		},
	}
	requestBody, _ := json.Marshal(attachmentRequest)
	request, err := http.NewRequest("POST", attachmentAPI, bytes.NewBuffer(requestBody))
	if err != nil {
		return
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Authorization", bot.config.DiscordToken)
	response, err := bot.httpClient.Do(request)
	if err != nil {
		return
	}
	defer response.Body.Close()
	var attachmentResponse AttachmentResponse
	if err = json.NewDecoder(response.Body).Decode(&attachmentResponse); err != nil {
		return
	}
	if len(attachmentResponse.Attachments) == 0 {
		err = fmt.Errorf("no attachment slot returned")
		return
	}
	attachment := attachmentResponse.Attachments[0]
	uploadedFilename = attachment.UploadFilename
	request, err = http.NewRequest("PUT", attachment.UploadURL, file)
	if err != nil {
		return
	}
	request.Header.Set("Content-Type", contentType)
	response, err = bot.httpClient.Do(request)
	if err != nil {
		return
	}
	defer response.Body.Close()
	if response.StatusCode >= 400 {
		err = fmt.Errorf("attachment upload failed, status code: %d", response.StatusCode)
	}
	return
}

// executeSlashCommand sends a type 2 interaction. A status >= 400 means the
// platform rejected the dispatch synchronously.
func (bot *DomoBot) executeSlashCommand(commandName string, options []*discordgo.ApplicationCommandInteractionDataOption, attachments []AttachmentInCommand) (status int, err error) {
	command, exists := bot.discordCommands[commandName]
	if !exists || command == nil {
		return 500, ErrCommandNotFound
	}
	commandAttachments := make([]interface{}, 0, len(attachments))
	for _, attachment := range attachments {
		commandAttachments = append(commandAttachments, attachment)
	}
	payload := InteractionRequest{
		Type:          2,
		ApplicationID: command.ApplicationID,
		GuildID:       bot.config.DiscordGuildId,
		ChannelID:     bot.config.DiscordChannelId,
		SessionID:     bot.config.DiscordSessionId,
		Nonce:         bot.generateNonce(),
		Data: InteractionRequestData{
			Version:            command.Version,
			ID:                 command.ID,
			Name:               command.Name,
			Type:               int(command.Type),
			Options:            options,
			ApplicationCommand: command,
			Attachments:        commandAttachments,
		},
	}
	return bot.sendInteractionRequest(payload)
}

// clickButton sends a type 3 component interaction and waits for the gateway
// to acknowledge the click. The acknowledgment only means the click landed;
// the actual content arrives later through the edit stream.
func (bot *DomoBot) clickButton(customId, messageId string) (status int, err error) {
	nonce := bot.generateNonce()
	// subscribe before sending; the ack can beat the POST response
	ackCh := bot.registerInteractionWaiter(nonce)
	payload := ComponentInteractionRequest{
		Type:          3,
		ApplicationID: bot.config.DomoApplicationId,
		GuildID:       bot.config.DiscordGuildId,
		ChannelID:     bot.config.DiscordChannelId,
		SessionID:     bot.config.DiscordSessionId,
		MessageFlags:  0,
		MessageID:     messageId,
		Nonce:         nonce,
		Data: ComponentClickData{
			ComponentType: 2,
			CustomID:      customId,
		},
	}
	status, err = bot.sendInteractionRequest(payload)
	if err != nil || status >= 400 {
		bot.removeInteractionWaiter(nonce)
		return
	}
	err = bot.waitForInteractionAck(ackCh, nonce, interactionAckTimeout)
	return
}
