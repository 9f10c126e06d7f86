package domain

import (
	"strings"
	"time"
)

// Task represents a titled unit of work owned by exactly one user.
//
// Completed and CompletedAt are only changed together through the
// transition methods below; CompletedAt is non-nil exactly when
// Completed is true.
type Task struct {
	ID          int64      `json:"id"`
	OwnerID     int64      `json:"owner_id"`
	Title       string     `json:"title"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewTask builds a pending task for the given owner.
func NewTask(ownerID int64, title string, now time.Time) (*Task, error) {
	title, err := NormalizeTitle(title)
	if err != nil {
		return nil, err
	}
	return &Task{
		OwnerID:   ownerID,
		Title:     title,
		CreatedAt: now,
	}, nil
}

// NormalizeTitle trims surrounding whitespace and rejects empty titles.
func NormalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrInvalidTitle
	}
	return title, nil
}

// Rename replaces the title without touching completion state.
func (t *Task) Rename(title string) error {
	title, err := NormalizeTitle(title)
	if err != nil {
		return err
	}
	t.Title = title
	return nil
}

func (t *Task) IsCompleted() bool {
	return t != nil && t.Completed
}

func (t *Task) IsPending() bool {
	return t != nil && !t.Completed
}

// MarkCompleted completes a pending task and reports whether anything changed.
// An already completed task keeps its original CompletedAt.
func (t *Task) MarkCompleted(now time.Time) bool {
	if t.Completed {
		return false
	}
	t.setCompleted(true, now)
	return true
}

// MarkPending reopens a completed task and reports whether anything changed.
func (t *Task) MarkPending() bool {
	if !t.Completed {
		return false
	}
	t.setCompleted(false, time.Time{})
	return true
}

// Toggle flips the completion state.
func (t *Task) Toggle(now time.Time) {
	t.setCompleted(!t.Completed, now)
}

func (t *Task) setCompleted(completed bool, now time.Time) {
	t.Completed = completed
	if completed {
		at := now
		t.CompletedAt = &at
		return
	}
	t.CompletedAt = nil
}

// SameAs reports whether both values refer to the same persisted task.
// Unsaved tasks (ID 0) are never the same as anything.
func (t *Task) SameAs(other *Task) bool {
	if t == nil || other == nil || t.ID == 0 {
		return false
	}
	return t.ID == other.ID
}

// TaskStats summarizes one owner's task list.
type TaskStats struct {
	Total            int     `json:"total"`
	Completed        int     `json:"completed"`
	Pending          int     `json:"pending"`
	PercentCompleted float64 `json:"percent_completed"`
}

// ComputeTaskStats derives counters from a task snapshot. An empty list yields 0%.
func ComputeTaskStats(tasks []Task) TaskStats {
	stats := TaskStats{Total: len(tasks)}
	for i := range tasks {
		if tasks[i].Completed {
			stats.Completed++
		}
	}
	stats.Pending = stats.Total - stats.Completed
	if stats.Total > 0 {
		stats.PercentCompleted = float64(stats.Completed) / float64(stats.Total) * 100
	}
	return stats
}
