package domain

import "time"

// Task belongs to exactly one user. The JSON names are the ones the web
// client has always used.
type Task struct {
	ID          int64     `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"user"`
	Title       string    `db:"title" json:"titulo"`
	Description string    `db:"description" json:"descripcion"`
	DueDate     Date      `db:"due_date" json:"fecha_vence"`
	Completed   bool      `db:"completed" json:"estado"`
	CreatedAt   time.Time `db:"created_at" json:"-"`
}

// Task event types pushed to websocket subscribers.
const (
	TaskEventCreated = "task.created"
	TaskEventUpdated = "task.updated"
	TaskEventDeleted = "task.deleted"
)

// TaskEvent describes a change to one of a user's tasks.
type TaskEvent struct {
	Type   string `json:"type"`
	TaskID int64  `json:"id"`
	Task   *Task  `json:"task,omitempty"`
}
