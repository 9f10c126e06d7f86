package domain

import "time"

// TaskEventName identifies a committed change applied to a task.
type TaskEventName string

const (
	TaskCreated   TaskEventName = "task.created"
	TaskRenamed   TaskEventName = "task.renamed"
	TaskCompleted TaskEventName = "task.completed"
	TaskReopened  TaskEventName = "task.reopened"
	TaskDeleted   TaskEventName = "task.deleted"
)

// TaskEvent is an activity record describing a change after it was committed.
type TaskEvent struct {
	ID         string            `json:"id"`
	TaskID     int64             `json:"task_id"`
	OwnerID    int64             `json:"owner_id"`
	Name       TaskEventName     `json:"name"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// NewTaskEvent captures the state of task at the moment of the change.
func NewTaskEvent(name TaskEventName, task *Task, at time.Time) TaskEvent {
	event := TaskEvent{
		Name:       name,
		OccurredAt: at,
	}
	if task != nil {
		event.TaskID = task.ID
		event.OwnerID = task.OwnerID
		event.Metadata = map[string]string{"title": task.Title}
	}
	return event
}

// TransitionEvent names the event produced by a completion change.
func TransitionEvent(task *Task) TaskEventName {
	if task.IsCompleted() {
		return TaskCompleted
	}
	return TaskReopened
}
