package domain

import "time"

// TaskStatus enumerates lifecycle states for tasks.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
)

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// Next returns the status a task advances to. Completed tasks stay completed.
func (s TaskStatus) Next() TaskStatus {
	switch s {
	case TaskStatusPending:
		return TaskStatusInProgress
	case TaskStatusInProgress:
		return TaskStatusCompleted
	default:
		return s
	}
}

// NextLabel is the caption of the action advancing a task in status s.
func (s TaskStatus) NextLabel() string {
	switch s {
	case TaskStatusPending:
		return "Start Task"
	case TaskStatusInProgress:
		return "Complete Task"
	default:
		return "Completed"
	}
}

// Task is a unit of work assigned by an administrator.
type Task struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Status       TaskStatus `json:"status"`
	AssignedTo   string     `json:"assignedTo,omitempty"`
	AssigneeName string     `json:"assigneeName,omitempty"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Overdue reports whether an unfinished task is past its due date.
func (t Task) Overdue(now time.Time) bool {
	return t.DueDate != nil && t.Status != TaskStatusCompleted && now.After(*t.DueDate)
}

// TaskDraft carries the fields an administrator sets when creating or
// editing a task.
type TaskDraft struct {
	Title       string
	Description string
	AssignedTo  string
	DueDate     *time.Time
	Status      TaskStatus
}
