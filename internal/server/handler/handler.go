package handler

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/haojie06/domoai-http/internal/catalog"
	"github.com/haojie06/domoai-http/internal/domoai"
	"github.com/haojie06/domoai-http/internal/model"
)

// TaskService is the dispatcher surface the handlers need; *domoai.DomoBot
// implements it.
type TaskService interface {
	Gen(ctx context.Context, params domoai.GenParams) (*domoai.TaskCreation, error)
	Real(ctx context.Context, params domoai.RealParams) (*domoai.TaskCreation, error)
	Animate(ctx context.Context, params domoai.AnimateParams) (*domoai.TaskCreation, error)
	Video(ctx context.Context, params domoai.VideoParams) (*domoai.TaskCreation, error)
	Move(ctx context.Context, params domoai.MoveParams) (*domoai.TaskCreation, error)
	Upscale(ctx context.Context, taskId string, index int) (*domoai.TaskCreation, error)
	Vary(ctx context.Context, taskId string, index int) (*domoai.TaskCreation, error)
	TaskData(ctx context.Context, taskId string) (*domoai.TaskDataView, error)
}

type Handler struct {
	bot     TaskService
	catalog *catalog.Catalog
}

func New(bot TaskService, modelCatalog *catalog.Catalog) *Handler {
	return &Handler{
		bot:     bot,
		catalog: modelCatalog,
	}
}

// respondTaskCreation maps dispatcher outcomes onto the API's error taxonomy:
// rejected dispatch is a 200 with success false, acceptance/ack timeouts are
// gateway errors, unknown task or action is a 404.
func respondTaskCreation(c *gin.Context, creation *domoai.TaskCreation, err error) {
	switch {
	case errors.Is(err, domoai.ErrAcceptanceTimeout) || errors.Is(err, domoai.ErrInteractionTimeout):
		c.JSON(http.StatusGatewayTimeout, model.ErrorResponse{Message: err.Error()})
	case errors.Is(err, domoai.ErrTaskNotFound) || errors.Is(err, domoai.ErrActionNotAvailable):
		c.JSON(http.StatusNotFound, model.ErrorResponse{Message: err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Message: err.Error()})
	case !creation.Success:
		c.JSON(http.StatusOK, model.TaskCreatedResponse{Success: false})
	default:
		c.JSON(http.StatusOK, model.TaskCreatedResponse{
			Success:   true,
			TaskId:    creation.TaskId,
			MessageId: creation.MessageId,
		})
	}
}

// formUploadFile opens a multipart file as a command attachment. The returned
// close func must be called after dispatch.
func formUploadFile(fileHeader *multipart.FileHeader) (*domoai.UploadFile, func(), error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, nil, err
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &domoai.UploadFile{
		Filename:    fileHeader.Filename,
		Size:        int(fileHeader.Size),
		ContentType: contentType,
		Reader:      file,
	}, func() { file.Close() }, nil
}

// mode and similar flag values become --{token} in the composite prompt, so
// they must be single tokens
func validFlagToken(token string) bool {
	return token == "" || !strings.ContainsAny(token, " \t\n")
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, model.ErrorResponse{Message: message})
}
