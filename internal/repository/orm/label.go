package orm

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/projpool/projpool/internal/apperrors"
	"github.com/projpool/projpool/internal/models"
)

type LabelRepo struct {
	DB *gorm.DB
}

func (r *LabelRepo) Create(ctx context.Context, label *models.Label) error {
	if err := r.DB.WithContext(ctx).Create(label).Error; err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *LabelRepo) List(ctx context.Context) ([]models.Label, error) {
	var labels []models.Label
	if err := r.DB.WithContext(ctx).Order("name").Find(&labels).Error; err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return labels, nil
}

func (r *LabelRepo) Get(ctx context.Context, id int64) (models.Label, error) {
	var label models.Label
	err := r.DB.WithContext(ctx).First(&label, id).Error
	return label, notFound(err, apperrors.ErrLabelNotFound)
}

func (r *LabelRepo) Delete(ctx context.Context, id int64) error {
	res := r.DB.WithContext(ctx).Delete(&models.Label{}, id)
	return deleted(res, apperrors.ErrLabelNotFound)
}
