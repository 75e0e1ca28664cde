package domoai

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/haojie06/domoai-http/internal/cache"
	"github.com/haojie06/domoai-http/internal/logger"
)

const (
	taskDataKeyPrefix    = "task_id2data:"
	messageBindKeyPrefix = "message_id2task_id:"
)

// TaskStore keeps the two indirections the proxy lives on:
// message_id -> task_id and task_id -> TaskCacheData. There is no locking;
// each task is written by one causal chain (dispatch, then one terminal
// watcher update) and every write replaces the whole value.
type TaskStore struct {
	cache   cache.Cache
	taskTTL time.Duration
	logger  *logger.CustomLogger
}

func NewTaskStore(c cache.Cache, taskTTL time.Duration) *TaskStore {
	return &TaskStore{
		cache:   c,
		taskTTL: taskTTL,
		logger:  logger.NewCustomLogger().With("component", "taskstore"),
	}
}

func (s *TaskStore) SaveTask(ctx context.Context, taskId string, data TaskCacheData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, taskDataKeyPrefix+taskId, string(payload), s.taskTTL)
}

// GetTask returns (nil, false) for a missing task. A payload that no longer
// deserializes is treated the same way, it only gets logged; readers must see
// "not found", never a server error.
func (s *TaskStore) GetTask(ctx context.Context, taskId string) (*TaskCacheData, bool) {
	payload, err := s.cache.Get(ctx, taskDataKeyPrefix+taskId)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Errorf("failed to read task %s: %s", taskId, err)
		}
		return nil, false
	}
	var data TaskCacheData
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		s.logger.Errorf("malformed cached record for task %s: %s", taskId, err)
		return nil, false
	}
	return &data, true
}

func (s *TaskStore) BindMessage(ctx context.Context, messageId, taskId string) error {
	return s.cache.Set(ctx, messageBindKeyPrefix+messageId, taskId, s.taskTTL)
}

func (s *TaskStore) ResolveTaskForMessage(ctx context.Context, messageId string) (string, bool) {
	taskId, err := s.cache.Get(ctx, messageBindKeyPrefix+messageId)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Errorf("failed to resolve task for message %s: %s", messageId, err)
		}
		return "", false
	}
	return taskId, true
}
