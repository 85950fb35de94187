package repository

import (
	"context"

	"commissioning-backend/internal/models"

	"gorm.io/gorm"
)

type GormProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepo(db *gorm.DB) *GormProjectRepository {
	return &GormProjectRepository{db: db}
}

// List retrieves all projects ordered by name
func (r *GormProjectRepository) List(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.WithContext(ctx).Order("name ASC").Find(&projects).Error
	return projects, translateError(err, "project")
}

// GetByID retrieves a project by ID
func (r *GormProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&project).Error; err != nil {
		return nil, translateError(err, "project")
	}
	return &project, nil
}

// GetByName retrieves a project by its unique name
func (r *GormProjectRepository) GetByName(ctx context.Context, name string) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&project).Error; err != nil {
		return nil, translateError(err, "project")
	}
	return &project, nil
}

// Create creates a new project
func (r *GormProjectRepository) Create(ctx context.Context, project *models.Project) error {
	return translateError(r.db.WithContext(ctx).Create(project).Error, "project")
}

// Update saves every column of an existing project
func (r *GormProjectRepository) Update(ctx context.Context, project *models.Project) error {
	result := r.db.WithContext(ctx).Model(&models.Project{}).
		Where("id = ?", project.ID).
		Updates(map[string]interface{}{
			"name":     project.Name,
			"address":  project.Address,
			"password": project.Password,
		})
	if result.Error != nil {
		return translateError(result.Error, "project")
	}
	if result.RowsAffected == 0 {
		// MySQL reports zero rows for an update that changes nothing, so
		// only a missing row is an error.
		if _, err := r.GetByID(ctx, project.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete hard deletes a project
func (r *GormProjectRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Project{}).Error
	return translateError(err, "project")
}
