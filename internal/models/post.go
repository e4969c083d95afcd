package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post is a shareable snippet card: a project converted into a social image
// post. Stored in MongoDB.
type Post struct {
	ID            primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID        uint               `json:"user_id" bson:"user_id"`
	ProjectID     uint               `json:"project_id,omitempty" bson:"project_id,omitempty"`
	Caption       string             `json:"caption" bson:"caption"`
	CodeSnippet   string             `json:"code_snippet,omitempty" bson:"code_snippet,omitempty"`
	Language      string             `json:"language,omitempty" bson:"language,omitempty"`
	ImageURL      string             `json:"image_url,omitempty" bson:"image_url,omitempty"` // rasterized snippet artifact
	LikesCount    int                `json:"likes_count" bson:"likes_count"`
	CommentsCount int                `json:"comments_count" bson:"comments_count"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" bson:"updated_at"`
}

// CreatePostRequest defines the request body for publishing a new post
type CreatePostRequest struct {
	ProjectID   uint   `json:"project_id,omitempty"`
	Caption     string `json:"caption" validate:"required,min=1,max=280"`
	CodeSnippet string `json:"code_snippet,omitempty" validate:"omitempty,max=10000"`
	Language    string `json:"language,omitempty" validate:"omitempty,oneof=html css js"`
	ImageURL    string `json:"image_url,omitempty" validate:"omitempty,url"`
}

// UpdatePostRequest defines the request body for updating an existing post
type UpdatePostRequest struct {
	Caption  string `json:"caption,omitempty" validate:"omitempty,min=1,max=280"`
	ImageURL string `json:"image_url,omitempty" validate:"omitempty,url"`
}
