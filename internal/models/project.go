package models

import (
	"time"

	"gorm.io/datatypes"
)

// Project is a saved playground project: three source buffers plus sharing
// metadata, stored in PostgreSQL.
type Project struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Title       string         `json:"title" gorm:"size:200;not null"`
	Description string         `json:"description"`
	Kind        string         `json:"kind" gorm:"size:20;default:html;index"` // html, react, vue, next, astro, python, markdown
	HTML        string         `json:"html"`
	CSS         string         `json:"css"`
	JS          string         `json:"js"`
	Thumbnail   string         `json:"thumbnail"` // PNG data URI produced by the capture pipeline
	IsPublic    bool           `json:"is_public" gorm:"default:false;index"`
	UserID      uint           `json:"user_id" gorm:"index"`
	Metadata    datatypes.JSON `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// CreateProjectRequest defines the request body for saving a new project.
// At least one source buffer must be non-empty; the handler enforces that
// before any persistence call.
type CreateProjectRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=200"`
	Description string `json:"description,omitempty" validate:"omitempty,max=1000"`
	Kind        string `json:"kind,omitempty" validate:"omitempty,oneof=html react vue next astro python markdown"`
	HTML        string `json:"html,omitempty"`
	CSS         string `json:"css,omitempty"`
	JS          string `json:"js,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	IsPublic    bool   `json:"is_public,omitempty"`
}

// UpdateProjectRequest defines the request body for updating an existing project
type UpdateProjectRequest struct {
	Title       string     `json:"title" validate:"required,min=1,max=200"`
	Description string     `json:"description,omitempty" validate:"omitempty,max=1000"`
	HTML        *string    `json:"html,omitempty"`
	CSS         *string    `json:"css,omitempty"`
	JS          *string    `json:"js,omitempty"`
	Thumbnail   string     `json:"thumbnail,omitempty"`
	IsPublic    *bool      `json:"is_public,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"` // optional stale-write precondition
}

// HasSource reports whether at least one source buffer carries content.
func (r *CreateProjectRequest) HasSource() bool {
	return r.HTML != "" || r.CSS != "" || r.JS != ""
}
