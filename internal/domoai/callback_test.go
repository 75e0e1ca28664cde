package domoai

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testCallback(url string) *EventCallback {
	c := NewEventCallback(url)
	c.retryInterval = 5 * time.Millisecond
	return c
}

func TestEventCallbackNoURLIsNoOp(t *testing.T) {
	c := testCallback("")
	// must return immediately without panicking
	c.SendTaskSuccess("task-1", TaskCacheData{Status: TaskStatusSuccess})
}

func TestEventCallbackRetriesThenSucceeds(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer server.Close()

	testCallback(server.URL).SendTaskSuccess("task-1", TaskCacheData{Status: TaskStatusSuccess})

	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Fatalf("attempts: got %d, want 3", got)
	}
}

func TestEventCallbackGivesUpSilently(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	// exhausting retries must not panic or surface anything
	testCallback(server.URL).SendTaskSuccess("task-1", TaskCacheData{Status: TaskStatusSuccess})

	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Fatalf("attempts: got %d, want 3", got)
	}
}
