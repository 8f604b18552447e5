package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/casedesk-api/internal/models"
)

// CaseRepository reads and updates the case fields the collaborator handlers touch.
type CaseRepository interface {
	FindByID(ctx context.Context, id uint) (models.Case, error)
	AssignLawyer(ctx context.Context, id uint, lawyerID string) (models.Case, error)
	UpdateStatus(ctx context.Context, id uint, status string) (models.Case, error)
}

type caseRepository struct {
	db *gorm.DB
}

// NewCaseRepository constructs a case repository backed by GORM.
func NewCaseRepository(db *gorm.DB) CaseRepository {
	return &caseRepository{db: db}
}

func (r *caseRepository) FindByID(ctx context.Context, id uint) (models.Case, error) {
	var record models.Case
	if err := r.db.WithContext(ctx).First(&record, id).Error; err != nil {
		return models.Case{}, err
	}
	return record, nil
}

func (r *caseRepository) AssignLawyer(ctx context.Context, id uint, lawyerID string) (models.Case, error) {
	return r.update(ctx, id, map[string]interface{}{"lawyer_id": lawyerID})
}

func (r *caseRepository) UpdateStatus(ctx context.Context, id uint, status string) (models.Case, error) {
	return r.update(ctx, id, map[string]interface{}{"status": status})
}

func (r *caseRepository) update(ctx context.Context, id uint, fields map[string]interface{}) (models.Case, error) {
	result := r.db.WithContext(ctx).Model(&models.Case{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return models.Case{}, result.Error
	}
	if result.RowsAffected == 0 {
		return models.Case{}, gorm.ErrRecordNotFound
	}
	return r.FindByID(ctx, id)
}
