package forms

import (
	"strings"
	"time"

	"github.com/spec-kit/task-portal/internal/domain"
)

const dateLayout = "2006-01-02"

// TaskForm creates or edits a task from the admin console.
type TaskForm struct {
	Title       string `json:"title" form:"title" validate:"required"`
	Description string `json:"description" form:"description" validate:"required"`
	AssignedTo  string `json:"assignedTo" form:"assignedTo" validate:"required"`
	DueDate     string `json:"dueDate" form:"dueDate" validate:"omitempty,datetime=2006-01-02"`
	Status      string `json:"status" form:"status" validate:"omitempty,oneof=PENDING IN_PROGRESS COMPLETED"`
}

func (TaskForm) messages() map[string]string {
	return map[string]string{
		"title.required":       "Title is required",
		"description.required": "Description is required",
		"assignedTo.required":  "Please select a user",
		"dueDate.datetime":     "Due date must be a valid date",
		"status.oneof":         "Unknown task status",
	}
}

// Normalize trims the text fields.
func (f *TaskForm) Normalize() {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	f.AssignedTo = strings.TrimSpace(f.AssignedTo)
	f.DueDate = strings.TrimSpace(f.DueDate)
}

// Due parses the optional due date. Call after Validate.
func (f TaskForm) Due() *time.Time {
	if f.DueDate == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, f.DueDate)
	if err != nil {
		return nil
	}
	return &t
}

// TaskStatus returns the requested status, PENDING when none was given.
func (f TaskForm) TaskStatus() domain.TaskStatus {
	if f.Status == "" {
		return domain.TaskStatusPending
	}
	return domain.TaskStatus(f.Status)
}
