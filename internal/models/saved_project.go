package models

import "time"

// SavedProject represents a project pinned/bookmarked by a user
type SavedProject struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index;uniqueIndex:idx_user_project_save"`
	ProjectID uint      `json:"project_id" gorm:"index;uniqueIndex:idx_user_project_save"`
	CreatedAt time.Time `json:"created_at"`
}
