package repositories

import (
	"errors"
	"time"

	"github.com/subatomicERROR/codenano-sub000/internal/models"
	"gorm.io/gorm"
)

// ErrStaleWrite is returned when an update carries an updated_at precondition
// that no longer matches the stored row: another save landed first.
var ErrStaleWrite = errors.New("project was modified by a concurrent save")

// ProjectRepository defines the interface for project data operations
type ProjectRepository interface {
	CreateProject(project *models.Project) error
	GetProjectByID(id uint) (*models.Project, error)
	GetProjectsByUserID(userID uint, offset, limit int) ([]models.Project, error)
	GetPublicProjects(offset, limit int) ([]models.Project, error)
	GetPublicProjectsByUserID(userID uint, offset, limit int) ([]models.Project, error)
	UpdateProject(project *models.Project) error
	UpdateProjectGuarded(project *models.Project, expectedUpdatedAt time.Time) error
	SaveBuffers(id, userID uint, html, css, js string) error
	DeleteProject(id, userID uint) error
	SearchPublicProjects(query string, offset, limit int) ([]models.Project, error)
}

// PostgresProjectRepository implements ProjectRepository for PostgreSQL
type PostgresProjectRepository struct {
	db *gorm.DB
}

// NewPostgresProjectRepository creates a new PostgresProjectRepository
func NewPostgresProjectRepository(db *gorm.DB) *PostgresProjectRepository {
	return &PostgresProjectRepository{db: db}
}

// CreateProject creates a new project in PostgreSQL
func (r *PostgresProjectRepository) CreateProject(project *models.Project) error {
	return r.db.Create(project).Error
}

// GetProjectByID retrieves a project by ID from PostgreSQL
func (r *PostgresProjectRepository) GetProjectByID(id uint) (*models.Project, error) {
	var project models.Project
	if err := r.db.First(&project, id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// GetProjectsByUserID retrieves a user's own projects, newest first
func (r *PostgresProjectRepository) GetProjectsByUserID(userID uint, offset, limit int) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.Where("user_id = ?", userID).
		Order("updated_at DESC").
		Offset(offset).Limit(limit).
		Find(&projects).Error
	return projects, err
}

// GetPublicProjects retrieves publicly shared projects, newest first
func (r *PostgresProjectRepository) GetPublicProjects(offset, limit int) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.Where("is_public = ?", true).
		Order("updated_at DESC").
		Offset(offset).Limit(limit).
		Find(&projects).Error
	return projects, err
}

// GetPublicProjectsByUserID retrieves another user's shared projects
func (r *PostgresProjectRepository) GetPublicProjectsByUserID(userID uint, offset, limit int) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.Where("user_id = ? AND is_public = ?", userID, true).
		Order("updated_at DESC").
		Offset(offset).Limit(limit).
		Find(&projects).Error
	return projects, err
}

// UpdateProject saves a project unconditionally (last write wins)
func (r *PostgresProjectRepository) UpdateProject(project *models.Project) error {
	return r.db.Save(project).Error
}

// UpdateProjectGuarded saves a project only if the stored updated_at still
// matches the caller's expectation, so an overlapping save surfaces as
// ErrStaleWrite instead of silently clobbering the newer write.
func (r *PostgresProjectRepository) UpdateProjectGuarded(project *models.Project, expectedUpdatedAt time.Time) error {
	res := r.db.Model(&models.Project{}).
		Where("id = ? AND user_id = ? AND updated_at = ?", project.ID, project.UserID, expectedUpdatedAt).
		Updates(map[string]interface{}{
			"title":       project.Title,
			"description": project.Description,
			"html":        project.HTML,
			"css":         project.CSS,
			"js":          project.JS,
			"thumbnail":   project.Thumbnail,
			"is_public":   project.IsPublic,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleWrite
	}
	return nil
}

// SaveBuffers persists just the three source buffers (the auto-save path)
func (r *PostgresProjectRepository) SaveBuffers(id, userID uint, html, css, js string) error {
	res := r.db.Model(&models.Project{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{"html": html, "css": css, "js": js})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteProject deletes a project owned by the given user
func (r *PostgresProjectRepository) DeleteProject(id, userID uint) error {
	res := r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Project{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SearchPublicProjects searches shared projects by title or description
func (r *PostgresProjectRepository) SearchPublicProjects(query string, offset, limit int) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.Where("is_public = ? AND (LOWER(title) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?))",
		true, "%"+query+"%", "%"+query+"%").
		Order("updated_at DESC").
		Offset(offset).Limit(limit).
		Find(&projects).Error
	return projects, err
}
