package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/haojie06/domoai-http/internal/domoai"
)

// CreateAnimateTask handles POST /v1/animate: image-to-video animation.
func (h *Handler) CreateAnimateTask(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		badRequest(c, "image is required")
		return
	}
	length := c.PostForm("length")
	intensity := c.PostForm("intensity")
	if length == "" || intensity == "" {
		badRequest(c, "length and intensity are required")
		return
	}
	mode := c.PostForm("mode")
	if !validFlagToken(length) || !validFlagToken(intensity) || !validFlagToken(mode) {
		badRequest(c, "invalid flag value")
		return
	}
	image, closeFile, err := formUploadFile(fileHeader)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	defer closeFile()

	creation, err := h.bot.Animate(c.Request.Context(), domoai.AnimateParams{
		Image:     *image,
		Length:    length,
		Intensity: intensity,
		Prompt:    c.PostForm("prompt"),
		Mode:      mode,
	})
	respondTaskCreation(c, creation, err)
}

// CreateVideoTask handles POST /v1/video: video-to-video restyle.
func (h *Handler) CreateVideoTask(c *gin.Context) {
	fileHeader, err := c.FormFile("video")
	if err != nil {
		badRequest(c, "video is required")
		return
	}
	prompt := c.PostForm("prompt")
	if prompt == "" {
		badRequest(c, "prompt is required")
		return
	}
	referMode, ok := parseReferMode(c.PostForm("refer_mode"))
	if !ok {
		badRequest(c, "refer_mode must be VIDEO_MORE or PROMPT_MORE")
		return
	}
	length := c.PostForm("length")
	if !domoai.ValidVideoLength(length) {
		badRequest(c, "invalid length")
		return
	}
	mode := c.PostForm("mode")
	if !validFlagToken(mode) {
		badRequest(c, "invalid mode")
		return
	}
	modelToken, known := h.catalog.ResolveModel("video", c.PostForm("model"))
	if c.PostForm("model") == "" || !known {
		badRequest(c, "unknown model: "+c.PostForm("model"))
		return
	}
	video, closeFile, err := formUploadFile(fileHeader)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	defer closeFile()

	creation, err := h.bot.Video(c.Request.Context(), domoai.VideoParams{
		Video:     *video,
		Model:     modelToken,
		ReferMode: referMode,
		Length:    length,
		Prompt:    prompt,
		Mode:      mode,
	})
	respondTaskCreation(c, creation, err)
}

// CreateMoveTask handles POST /v1/move: motion transfer from a reference
// video onto an image.
func (h *Handler) CreateMoveTask(c *gin.Context) {
	imageHeader, err := c.FormFile("image")
	if err != nil {
		badRequest(c, "image is required")
		return
	}
	videoHeader, err := c.FormFile("video")
	if err != nil {
		badRequest(c, "video is required")
		return
	}
	prompt := c.PostForm("prompt")
	if prompt == "" {
		badRequest(c, "prompt is required")
		return
	}
	length := c.PostForm("length")
	if !domoai.ValidVideoLength(length) {
		badRequest(c, "invalid length")
		return
	}
	mode := c.PostForm("mode")
	if !validFlagToken(mode) {
		badRequest(c, "invalid mode")
		return
	}
	modelToken, known := h.catalog.ResolveModel("move", c.PostForm("model"))
	if c.PostForm("model") == "" || !known {
		badRequest(c, "unknown model: "+c.PostForm("model"))
		return
	}
	image, closeImage, err := formUploadFile(imageHeader)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	defer closeImage()
	video, closeVideo, err := formUploadFile(videoHeader)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	defer closeVideo()

	creation, err := h.bot.Move(c.Request.Context(), domoai.MoveParams{
		Image:  *image,
		Video:  *video,
		Model:  modelToken,
		Length: length,
		Prompt: prompt,
		Mode:   mode,
	})
	respondTaskCreation(c, creation, err)
}

func parseReferMode(value string) (domoai.VideoReferMode, bool) {
	switch domoai.VideoReferMode(value) {
	case domoai.ReferToSourceVideoMore:
		return domoai.ReferToSourceVideoMore, true
	case domoai.ReferToMyPromptMore:
		return domoai.ReferToMyPromptMore, true
	}
	return "", false
}
