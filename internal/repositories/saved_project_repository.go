package repositories

import (
	"fmt"

	"github.com/subatomicERROR/codenano-sub000/internal/models"
	"gorm.io/gorm"
)

// SavedProjectRepository defines the interface for project bookmark operations
type SavedProjectRepository interface {
	SaveProject(saved *models.SavedProject) error
	UnsaveProject(userID, projectID uint) error
	IsProjectSaved(userID, projectID uint) (bool, error)
	GetSavedProjectsByUser(userID uint) ([]models.SavedProject, error)
}

// PostgresSavedProjectRepository implements SavedProjectRepository
type PostgresSavedProjectRepository struct {
	db *gorm.DB
}

func NewPostgresSavedProjectRepository(db *gorm.DB) *PostgresSavedProjectRepository {
	return &PostgresSavedProjectRepository{db: db}
}

func (r *PostgresSavedProjectRepository) SaveProject(saved *models.SavedProject) error {
	return r.db.Create(saved).Error
}

func (r *PostgresSavedProjectRepository) UnsaveProject(userID, projectID uint) error {
	res := r.db.Where("user_id = ? AND project_id = ?", userID, projectID).Delete(&models.SavedProject{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("saved project not found")
	}
	return nil
}

func (r *PostgresSavedProjectRepository) IsProjectSaved(userID, projectID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.SavedProject{}).Where("user_id = ? AND project_id = ?", userID, projectID).Count(&count).Error
	return count > 0, err
}

func (r *PostgresSavedProjectRepository) GetSavedProjectsByUser(userID uint) ([]models.SavedProject, error) {
	var saved []models.SavedProject
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&saved).Error
	return saved, err
}
