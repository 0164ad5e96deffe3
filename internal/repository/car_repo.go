package repository

import (
	"context"

	"github.com/fahad-m/CarRentBack/internal/models"
)

type CarRepository struct {
	db DBTX
}

func NewCarRepository(db DBTX) *CarRepository {
	return &CarRepository{db: db}
}

func (r *CarRepository) GetByID(ctx context.Context, id int64) (*models.Car, error) {
	query := `
		SELECT id, owner_id, title, created_at
		FROM cars
		WHERE id = $1
	`
	var car models.Car
	err := r.db.QueryRow(ctx, query, id).Scan(
		&car.ID,
		&car.OwnerID,
		&car.Title,
		&car.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &car, nil
}
