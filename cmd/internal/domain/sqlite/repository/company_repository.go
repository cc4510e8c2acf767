package repository

import (
	"context"
	"errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"perdecomp/cmd/internal/domain/entity"
)

type DefaultCompanyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) *DefaultCompanyRepository {
	return &DefaultCompanyRepository{db: db}
}

func (r *DefaultCompanyRepository) FindByCNPJ(ctx context.Context, cnpj string) (*entity.Company, error) {
	var company entity.Company
	err := r.db.WithContext(ctx).
		Preload("Partners").
		Where("cnpj = ?", cnpj).
		First(&company).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}
	return &company, nil
}

// Save replaces the cached company together with its partners.
func (r *DefaultCompanyRepository) Save(ctx context.Context, company *entity.Company) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("company_cnpj = ?", company.CNPJ).Delete(&entity.CompanyPartner{}).Error
		if err != nil {
			return err
		}
		return tx.Session(&gorm.Session{FullSaveAssociations: true}).
			Clauses(clause.OnConflict{UpdateAll: true}).
			Create(company).Error
	})
}

// DeleteExpired drops companies cached before the cutoff and their partners.
func (r *DefaultCompanyRepository) DeleteExpired(ctx context.Context, before int64) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expired := tx.Model(&entity.Company{}).Select("cnpj").Where("cached_at < ?", before)
		err := tx.Where("company_cnpj IN (?)", expired).Delete(&entity.CompanyPartner{}).Error
		if err != nil {
			return err
		}

		res := tx.Where("cached_at < ?", before).Delete(&entity.Company{})
		deleted = res.RowsAffected
		return res.Error
	})
	return deleted, err
}
