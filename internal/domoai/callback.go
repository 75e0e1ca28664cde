package domoai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/haojie06/domoai-http/internal/logger"
)

const EventTypeTaskSuccess = "TASK_SUCCESS"

type taskEventBody struct {
	Event  string `json:"event"`
	TaskId string `json:"task_id"`
	Data   string `json:"data"`
}

// EventCallback posts task completion events to a configured webhook.
// Delivery is best-effort: three attempts two seconds apart, then the event
// is dropped with a log line. Callers never see an error.
type EventCallback struct {
	callbackURL   string
	httpClient    *http.Client
	retryInterval time.Duration
	logger        *logger.CustomLogger
}

func NewEventCallback(callbackURL string) *EventCallback {
	return &EventCallback{
		callbackURL:   callbackURL,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		retryInterval: 2 * time.Second,
		logger:        logger.NewCustomLogger().With("component", "callback"),
	}
}

func (e *EventCallback) SendTaskSuccess(taskId string, data TaskCacheData) {
	if e.callbackURL == "" {
		return
	}
	view := NewTaskDataView(data)
	viewPayload, err := json.Marshal(view)
	if err != nil {
		e.logger.Errorf("failed to encode task %s event: %s", taskId, err)
		return
	}
	body, err := json.Marshal(taskEventBody{
		Event:  EventTypeTaskSuccess,
		TaskId: taskId,
		Data:   string(viewPayload),
	})
	if err != nil {
		e.logger.Errorf("failed to encode task %s event: %s", taskId, err)
		return
	}

	operation := func() error {
		response, err := e.httpClient.Post(e.callbackURL, "application/json", bytes.NewReader(body))
		if err != nil {
			return err
		}
		defer response.Body.Close()
		if response.StatusCode >= 400 {
			return fmt.Errorf("callback answered %d", response.StatusCode)
		}
		return nil
	}
	// 3 attempts total, fixed interval between them
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(e.retryInterval), 2)
	if err := backoff.Retry(operation, policy); err != nil {
		e.logger.Warnf("dropping task %s success event after retries: %s", taskId, err)
	}
}
