package database

import "time"

// Execution is the persisted metadata of one command run: what was executed
// where and how it ended. Output content is never stored; it only flows
// through the record stream to the consumer.
type Execution struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	TaskName   string     `gorm:"index" json:"task_name,omitempty"`
	Command    string     `gorm:"not null" json:"command"`
	Namespace  string     `gorm:"not null" json:"namespace"`
	Prefix     string     `gorm:"not null" json:"prefix"`
	Pod        string     `json:"pod"`
	Status     string     `gorm:"not null;default:running" json:"status"`
	Detail     string     `json:"detail,omitempty"`
	ExitCode   int        `json:"exit_code"`
	StartedAt  time.Time  `gorm:"not null" json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
}
