package domoai

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

var (
	ErrTaskNotFound       = fmt.Errorf("task not found")
	ErrActionNotAvailable = fmt.Errorf("action not available")
	ErrCommandNotFound    = fmt.Errorf("command not found")
	ErrAcceptanceTimeout  = fmt.Errorf("timeout waiting for acceptance message")
	ErrInteractionTimeout = fmt.Errorf("timeout waiting for interaction acknowledgment")
)

// TaskCommand tags which command family produced a task. Follow-up actions
// (upscale/vary) are only available on the image families.
type TaskCommand string

const (
	TaskCommandGen     TaskCommand = "GEN"
	TaskCommandReal    TaskCommand = "REAL"
	TaskCommandMove    TaskCommand = "MOVE"
	TaskCommandVideo   TaskCommand = "VIDEO"
	TaskCommandAnimate TaskCommand = "ANIMATE"
)

type TaskStatus string

const (
	TaskStatusRunning TaskStatus = "RUNNING"
	TaskStatusSuccess TaskStatus = "SUCCESS"
)

// TaskAsset describes one produced image or video. When the asset is parsed
// out of a plain-text result body instead of an attachment, url and proxy_url
// are the same.
type TaskAsset struct {
	URL         string `json:"url"`
	ProxyURL    string `json:"proxy_url"`
	ContentType string `json:"content_type,omitempty"`
	Size        int    `json:"size,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
}

func assetFromAttachment(attachment *discordgo.MessageAttachment) TaskAsset {
	return TaskAsset{
		URL:         attachment.URL,
		ProxyURL:    attachment.ProxyURL,
		ContentType: attachment.ContentType,
		Size:        attachment.Size,
		Width:       attachment.Width,
		Height:      attachment.Height,
	}
}

// TaskCacheData is the full cached state of one task, stored as an opaque
// JSON blob under task_id2data:{task_id}. It is written at dispatch time
// (RUNNING) and overwritten once by the result watcher (SUCCESS).
type TaskCacheData struct {
	Command   TaskCommand `json:"command"`
	ChannelId string      `json:"channel_id"`
	GuildId   string      `json:"guild_id,omitempty"`
	MessageId string      `json:"message_id"`

	Status TaskStatus `json:"status"`

	Images []TaskAsset `json:"images,omitempty"`
	Videos []TaskAsset `json:"videos,omitempty"`

	// label (U1..U4 / V1..V4) -> platform component custom_id, present only
	// for GEN and REAL tasks and only for currently enabled buttons
	UpscaleCustomIds map[string]string `json:"upscale_custom_ids,omitempty"`
	VaryCustomIds    map[string]string `json:"vary_custom_ids,omitempty"`
}

// TaskDataView is the external projection of a task: follow-up actions are
// exposed as small integer indices, never as raw custom_ids.
type TaskDataView struct {
	Command        TaskCommand `json:"command"`
	Status         TaskStatus  `json:"status"`
	Images         []TaskAsset `json:"images,omitempty"`
	Videos         []TaskAsset `json:"videos,omitempty"`
	UpscaleIndices []int       `json:"upscale_indices,omitempty"`
	VaryIndices    []int       `json:"vary_indices,omitempty"`
}

func NewTaskDataView(data TaskCacheData) TaskDataView {
	return TaskDataView{
		Command:        data.Command,
		Status:         data.Status,
		Images:         data.Images,
		Videos:         data.Videos,
		UpscaleIndices: actionIndices(data.UpscaleCustomIds),
		VaryIndices:    actionIndices(data.VaryCustomIds),
	}
}

// TaskCreation is the dispatcher's answer to one create request. Success is
// false when the platform rejected the interaction outright; in that case no
// task state exists.
type TaskCreation struct {
	Success   bool
	TaskId    string
	MessageId string
}

// VideoReferMode selects whether v2v generation leans on the source video or
// the prompt.
type VideoReferMode string

const (
	ReferToSourceVideoMore VideoReferMode = "VIDEO_MORE"
	ReferToMyPromptMore    VideoReferMode = "PROMPT_MORE"
)

func (m VideoReferMode) flagValue() string {
	if m == ReferToMyPromptMore {
		return "p"
	}
	return "v"
}

var videoLengths = map[string]struct{}{
	"3s":  {},
	"5s":  {},
	"10s": {},
	"20s": {},
}

func ValidVideoLength(length string) bool {
	_, ok := videoLengths[length]
	return ok
}
