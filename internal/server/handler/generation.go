package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/haojie06/domoai-http/internal/domoai"
)

// CreateGenTask handles POST /v1/gen: text-to-image, optionally guided by a
// reference image.
func (h *Handler) CreateGenTask(c *gin.Context) {
	prompt := c.PostForm("prompt")
	if prompt == "" {
		badRequest(c, "prompt is required")
		return
	}
	mode := c.PostForm("mode")
	if !validFlagToken(mode) {
		badRequest(c, "invalid mode")
		return
	}
	modelToken := ""
	if name := c.PostForm("model"); name != "" {
		token, known := h.catalog.ResolveModel("gen", name)
		if !known {
			badRequest(c, "unknown model: "+name)
			return
		}
		modelToken = token
	}

	params := domoai.GenParams{
		Prompt: prompt,
		Mode:   mode,
		Model:  modelToken,
	}
	if fileHeader, err := c.FormFile("image"); err == nil {
		image, closeFile, err := formUploadFile(fileHeader)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		defer closeFile()
		params.Image = image
	}

	creation, err := h.bot.Gen(c.Request.Context(), params)
	respondTaskCreation(c, creation, err)
}

// CreateRealTask handles POST /v1/real: realism restyle of an input image.
func (h *Handler) CreateRealTask(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		badRequest(c, "image is required")
		return
	}
	mode := c.PostForm("mode")
	if !validFlagToken(mode) {
		badRequest(c, "invalid mode")
		return
	}
	image, closeFile, err := formUploadFile(fileHeader)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	defer closeFile()

	creation, err := h.bot.Real(c.Request.Context(), domoai.RealParams{
		Image:  *image,
		Prompt: c.PostForm("prompt"),
		Mode:   mode,
	})
	respondTaskCreation(c, creation, err)
}
