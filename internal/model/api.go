package model

// TaskCreatedResponse answers every task-creating endpoint. Success false
// means the platform rejected the dispatch; no task exists in that case.
type TaskCreatedResponse struct {
	Success   bool   `json:"success"`
	TaskId    string `json:"task_id,omitempty"`
	MessageId string `json:"message_id,omitempty"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

// FollowUpRequest selects an upscale/vary button on a finished task.
type FollowUpRequest struct {
	TaskId string `form:"task_id" binding:"required"`
	Index  int    `form:"index" binding:"required,min=1,max=4"`
}
