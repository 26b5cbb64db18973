package repository

import (
	"github.com/adgenix/adgenix-backend/internal/models"
	"gorm.io/gorm"
)

type TokenPackageRepository struct {
	db *gorm.DB
}

func NewTokenPackageRepository(db *gorm.DB) *TokenPackageRepository {
	return &TokenPackageRepository{
		db: db,
	}
}

func (r *TokenPackageRepository) GetByID(id uint) (*models.TokenPackage, error) {
	var pkg models.TokenPackage
	err := r.db.First(&pkg, id).Error
	return &pkg, err
}

func (r *TokenPackageRepository) GetAll() ([]models.TokenPackage, error) {
	var packages []models.TokenPackage
	err := r.db.Where("is_active = ?", true).Order("price_idr ASC").Find(&packages).Error
	return packages, err
}
