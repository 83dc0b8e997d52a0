// Package model defines data structures for the task form bot.
package model

import (
	"time"
)

// TaskRecord is a completed task form. It is immutable once saved.
type TaskRecord struct {
	ID        int64     `json:"id"`
	Task      string    `json:"task"`
	Deadline  string    `json:"deadline"`
	Reminder  string    `json:"reminder"`
	CreatedAt time.Time `json:"created_at"`
}

// ListTasksResponse is the response for listing stored tasks.
type ListTasksResponse struct {
	Tasks []TaskRecord `json:"tasks"`
	Total int          `json:"total"`
}
