package orm

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/projpool/projpool/internal/apperrors"
	"github.com/projpool/projpool/internal/models"
)

type ImageRepo struct {
	DB *gorm.DB
}

// Create image record
// The project has to exist, otherwise apperrors.ErrProjectNotFound returned
func (r *ImageRepo) Create(ctx context.Context, image *models.Image) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := notFound(tx.Select("id").First(&project, image.ProjectID).Error, apperrors.ErrProjectNotFound); err != nil {
			return err
		}

		if err := tx.Create(image).Error; err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
}

func (r *ImageRepo) Get(ctx context.Context, id int64) (models.Image, error) {
	var image models.Image
	err := r.DB.WithContext(ctx).First(&image, id).Error
	return image, notFound(err, apperrors.ErrImageNotFound)
}

func (r *ImageRepo) ListByProject(ctx context.Context, projectID int64) ([]models.Image, error) {
	var images []models.Image
	err := r.DB.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("id").
		Find(&images).Error
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return images, nil
}

func (r *ImageRepo) Delete(ctx context.Context, id int64) error {
	res := r.DB.WithContext(ctx).Delete(&models.Image{}, id)
	return deleted(res, apperrors.ErrImageNotFound)
}
