package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/haojie06/domoai-http/internal/catalog"
	"github.com/haojie06/domoai-http/internal/domoai"
)

// fakeTaskService answers with whatever the test wires in; unset operations
// fail loudly.
type fakeTaskService struct {
	genFn     func(domoai.GenParams) (*domoai.TaskCreation, error)
	realFn    func(domoai.RealParams) (*domoai.TaskCreation, error)
	upscaleFn func(taskId string, index int) (*domoai.TaskCreation, error)
	taskFn    func(taskId string) (*domoai.TaskDataView, error)
}

func (f *fakeTaskService) Gen(_ context.Context, p domoai.GenParams) (*domoai.TaskCreation, error) {
	return f.genFn(p)
}

func (f *fakeTaskService) Real(_ context.Context, p domoai.RealParams) (*domoai.TaskCreation, error) {
	return f.realFn(p)
}

func (f *fakeTaskService) Animate(_ context.Context, p domoai.AnimateParams) (*domoai.TaskCreation, error) {
	panic("not wired")
}

func (f *fakeTaskService) Video(_ context.Context, p domoai.VideoParams) (*domoai.TaskCreation, error) {
	panic("not wired")
}

func (f *fakeTaskService) Move(_ context.Context, p domoai.MoveParams) (*domoai.TaskCreation, error) {
	panic("not wired")
}

func (f *fakeTaskService) Upscale(_ context.Context, taskId string, index int) (*domoai.TaskCreation, error) {
	return f.upscaleFn(taskId, index)
}

func (f *fakeTaskService) Vary(_ context.Context, taskId string, index int) (*domoai.TaskCreation, error) {
	return f.upscaleFn(taskId, index)
}

func (f *fakeTaskService) TaskData(_ context.Context, taskId string) (*domoai.TaskDataView, error) {
	return f.taskFn(taskId)
}

func newTestRouter(t *testing.T, service *fakeTaskService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	emptyCatalog, err := catalog.Load("")
	if err != nil {
		t.Fatal(err)
	}
	h := New(service, emptyCatalog)
	router := gin.New()
	router.POST("/v1/gen", h.CreateGenTask)
	router.POST("/v1/real", h.CreateRealTask)
	router.POST("/v1/upscale", h.CreateUpscaleTask)
	router.POST("/v1/vary", h.CreateVaryTask)
	router.GET("/v1/task-data/:task_id", h.GetTaskData)
	return router
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatal(err)
		}
	}
	for name, payload := range files {
		part, err := writer.CreateFormFile(name, name+".bin")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(payload); err != nil {
			t.Fatal(err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	return body, writer.FormDataContentType()
}

func TestCreateGenTask(t *testing.T) {
	var captured domoai.GenParams
	service := &fakeTaskService{
		genFn: func(p domoai.GenParams) (*domoai.TaskCreation, error) {
			captured = p
			return &domoai.TaskCreation{Success: true, TaskId: "task-1", MessageId: "msg-1"}, nil
		},
	}
	router := newTestRouter(t, service)

	body, contentType := multipartBody(t, map[string]string{
		"prompt": "a cat",
		"mode":   "fast",
		"model":  "illus v8",
	}, nil)
	request := httptest.NewRequest("POST", "/v1/gen", body)
	request.Header.Set("Content-Type", contentType)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status: got %d body %s", recorder.Code, recorder.Body.String())
	}
	var response map[string]interface{}
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatal(err)
	}
	if response["success"] != true || response["task_id"] != "task-1" || response["message_id"] != "msg-1" {
		t.Fatalf("got %v", response)
	}
	if captured.Prompt != "a cat" || captured.Mode != "fast" || captured.Model != "illus v8" {
		t.Fatalf("captured params: %+v", captured)
	}
}

func TestCreateGenTaskMissingPrompt(t *testing.T) {
	router := newTestRouter(t, &fakeTaskService{})
	body, contentType := multipartBody(t, map[string]string{}, nil)
	request := httptest.NewRequest("POST", "/v1/gen", body)
	request.Header.Set("Content-Type", contentType)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d", recorder.Code)
	}
}

func TestCreateGenTaskRejectedDispatch(t *testing.T) {
	service := &fakeTaskService{
		genFn: func(domoai.GenParams) (*domoai.TaskCreation, error) {
			return &domoai.TaskCreation{Success: false}, nil
		},
	}
	router := newTestRouter(t, service)
	body, contentType := multipartBody(t, map[string]string{"prompt": "a cat"}, nil)
	request := httptest.NewRequest("POST", "/v1/gen", body)
	request.Header.Set("Content-Type", contentType)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("rejected dispatch should still answer 200, got %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), `"success":false`) {
		t.Fatalf("got %s", recorder.Body.String())
	}
}

func TestCreateGenTaskAcceptanceTimeout(t *testing.T) {
	service := &fakeTaskService{
		genFn: func(domoai.GenParams) (*domoai.TaskCreation, error) {
			return nil, domoai.ErrAcceptanceTimeout
		},
	}
	router := newTestRouter(t, service)
	body, contentType := multipartBody(t, map[string]string{"prompt": "a cat"}, nil)
	request := httptest.NewRequest("POST", "/v1/gen", body)
	request.Header.Set("Content-Type", contentType)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusGatewayTimeout {
		t.Fatalf("timeout must map to a 5xx, got %d", recorder.Code)
	}
}

func TestCreateRealTaskRequiresImage(t *testing.T) {
	router := newTestRouter(t, &fakeTaskService{})
	body, contentType := multipartBody(t, map[string]string{"prompt": "x"}, nil)
	request := httptest.NewRequest("POST", "/v1/real", body)
	request.Header.Set("Content-Type", contentType)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d", recorder.Code)
	}
}

func TestCreateRealTaskUploadsImage(t *testing.T) {
	var captured domoai.RealParams
	service := &fakeTaskService{
		realFn: func(p domoai.RealParams) (*domoai.TaskCreation, error) {
			captured = p
			return &domoai.TaskCreation{Success: true, TaskId: "task-1", MessageId: "msg-1"}, nil
		},
	}
	router := newTestRouter(t, service)
	body, contentType := multipartBody(t, map[string]string{"prompt": "photo"}, map[string][]byte{"image": []byte("png-bytes")})
	request := httptest.NewRequest("POST", "/v1/real", body)
	request.Header.Set("Content-Type", contentType)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status: got %d body %s", recorder.Code, recorder.Body.String())
	}
	if captured.Image.Filename != "image.bin" || captured.Image.Size != len("png-bytes") {
		t.Fatalf("captured image: %+v", captured.Image)
	}
}

func TestUpscaleUnavailableIndexIs404(t *testing.T) {
	service := &fakeTaskService{
		upscaleFn: func(taskId string, index int) (*domoai.TaskCreation, error) {
			if taskId == "task-1" && (index == 1 || index == 3) {
				return &domoai.TaskCreation{Success: true, TaskId: "task-2", MessageId: "msg-2"}, nil
			}
			if taskId == "task-1" {
				return nil, domoai.ErrActionNotAvailable
			}
			return nil, domoai.ErrTaskNotFound
		},
	}
	router := newTestRouter(t, service)

	post := func(taskId string, index string) *httptest.ResponseRecorder {
		form := url.Values{"task_id": {taskId}, "index": {index}}
		request := httptest.NewRequest("POST", "/v1/upscale", strings.NewReader(form.Encode()))
		request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)
		return recorder
	}

	if recorder := post("task-1", "1"); recorder.Code != http.StatusOK {
		t.Fatalf("available index: got %d", recorder.Code)
	}
	if recorder := post("task-1", "2"); recorder.Code != http.StatusNotFound {
		t.Fatalf("unavailable index: got %d", recorder.Code)
	}
	if recorder := post("missing", "1"); recorder.Code != http.StatusNotFound {
		t.Fatalf("unknown task: got %d", recorder.Code)
	}
	if recorder := post("task-1", "5"); recorder.Code != http.StatusBadRequest {
		t.Fatalf("out-of-range index: got %d", recorder.Code)
	}
}

func TestGetTaskData(t *testing.T) {
	service := &fakeTaskService{
		taskFn: func(taskId string) (*domoai.TaskDataView, error) {
			if taskId != "task-1" {
				return nil, domoai.ErrTaskNotFound
			}
			return &domoai.TaskDataView{
				Command:        domoai.TaskCommandGen,
				Status:         domoai.TaskStatusSuccess,
				Images:         []domoai.TaskAsset{{URL: "u", ProxyURL: "p"}},
				UpscaleIndices: []int{1, 3},
			}, nil
		},
	}
	router := newTestRouter(t, service)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest("GET", "/v1/task-data/task-1", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("status: got %d", recorder.Code)
	}
	var view domoai.TaskDataView
	if err := json.Unmarshal(recorder.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if view.Status != domoai.TaskStatusSuccess || !reflect.DeepEqual(view.UpscaleIndices, []int{1, 3}) {
		t.Fatalf("got %+v", view)
	}

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest("GET", "/v1/task-data/other", nil))
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("unknown task: got %d", recorder.Code)
	}
}
