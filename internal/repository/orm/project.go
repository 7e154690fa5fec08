package orm

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/projpool/projpool/internal/apperrors"
	"github.com/projpool/projpool/internal/models"
)

type ProjectRepo struct {
	DB *gorm.DB
}

func (r *ProjectRepo) Create(ctx context.Context, project *models.Project) error {
	err := r.DB.WithContext(ctx).Omit("Labels").Create(project).Error
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// List projects owned by user, newest first
func (r *ProjectRepo) List(ctx context.Context, ownerID int64) ([]models.Project, error) {
	var projects []models.Project
	err := r.DB.WithContext(ctx).
		Preload("Labels").
		Where("owner_id = ?", ownerID).
		Order("id DESC").
		Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return projects, nil
}

func (r *ProjectRepo) Get(ctx context.Context, id int64) (models.Project, error) {
	var project models.Project
	err := r.DB.WithContext(ctx).Preload("Labels").First(&project, id).Error
	return project, notFound(err, apperrors.ErrProjectNotFound)
}

func (r *ProjectRepo) Delete(ctx context.Context, id int64) error {
	res := r.DB.WithContext(ctx).Delete(&models.Project{}, id)
	return deleted(res, apperrors.ErrProjectNotFound)
}

// Attach label to project
// Attaching the same label twice is not an error
func (r *ProjectRepo) AddLabel(ctx context.Context, projectID int64, labelID int64) (models.Project, error) {
	var project models.Project

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := notFound(tx.First(&project, projectID).Error, apperrors.ErrProjectNotFound); err != nil {
			return err
		}

		var label models.Label
		if err := notFound(tx.First(&label, labelID).Error, apperrors.ErrLabelNotFound); err != nil {
			return err
		}

		if err := tx.Model(&project).Association("Labels").Append(&label); err != nil {
			return fmt.Errorf("db error: %w", err)
		}

		return notFound(tx.Preload("Labels").First(&project, projectID).Error, apperrors.ErrProjectNotFound)
	})

	return project, err
}
