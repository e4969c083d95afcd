package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Reel is a short preview recording converted into a shareable video.
// Stored in MongoDB, view state tracked in PostgreSQL.
type Reel struct {
	ID         primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID     uint               `json:"user_id" bson:"user_id"`
	ProjectID  uint               `json:"project_id,omitempty" bson:"project_id,omitempty"`
	Caption    string             `json:"caption" bson:"caption"`
	VideoURL   string             `json:"video_url" bson:"video_url"` // capture pipeline artifact (webm, or mp4 when supported)
	MimeType   string             `json:"mime_type" bson:"mime_type"`
	Duration   float64            `json:"duration_seconds,omitempty" bson:"duration_seconds,omitempty"`
	ViewsCount int                `json:"views_count" bson:"views_count"`
	CreatedAt  time.Time          `json:"created_at" bson:"created_at"`
	ExpiresAt  time.Time          `json:"expires_at,omitempty" bson:"expires_at,omitempty"`
}

// ReelView records that a user has watched a reel (PostgreSQL)
type ReelView struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ReelID    string    `json:"reel_id" gorm:"index;uniqueIndex:idx_reel_viewer"`
	UserID    uint      `json:"user_id" gorm:"index;uniqueIndex:idx_reel_viewer"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateReelRequest defines the request body for publishing a new reel
type CreateReelRequest struct {
	ProjectID uint    `json:"project_id,omitempty"`
	Caption   string  `json:"caption,omitempty" validate:"omitempty,max=280"`
	VideoURL  string  `json:"video_url" validate:"required,url"`
	MimeType  string  `json:"mime_type,omitempty" validate:"omitempty,oneof=video/webm video/mp4"`
	Duration  float64 `json:"duration_seconds,omitempty" validate:"omitempty,min=0,max=120"`
}
