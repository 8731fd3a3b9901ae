package repository

import (
	"context"
	"fmt"

	"lastbite/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// mealRepository implements the MealRepository capability over the externally
// managed catalog tables.
type mealRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewMealRepository creates a new PostgreSQL-backed meal repository.
func NewMealRepository(pool *pgxpool.Pool, logger zerolog.Logger) MealRepository {
	return &mealRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "meal").Logger(),
	}
}

// GetByIDs retrieves meals by their IDs.
func (r *mealRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Meal, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, restaurant_id, name, price, quantity, available_from, available_until
		FROM meals
		WHERE id = ANY($1)
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query meals: %w", err)
	}
	defer rows.Close()

	var meals []model.Meal
	for rows.Next() {
		var meal model.Meal
		err := rows.Scan(&meal.ID, &meal.RestaurantID, &meal.Name, &meal.Price,
			&meal.Quantity, &meal.AvailableFrom, &meal.AvailableUntil)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meal: %w", err)
		}
		meals = append(meals, meal)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating meals: %w", err)
	}

	return meals, nil
}

// DecrementStock atomically subtracts qty portions. The quantity guard in the
// WHERE clause rejects oversells under concurrent orders.
func (r *mealRepository) DecrementStock(ctx context.Context, tx pgx.Tx, mealID uuid.UUID, qty int) (bool, error) {
	query := `
		UPDATE meals
		SET quantity = quantity - $2
		WHERE id = $1 AND quantity >= $2
	`

	tag, err := tx.Exec(ctx, query, mealID, qty)
	if err != nil {
		return false, fmt.Errorf("failed to decrement meal stock: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// RestockStock returns qty portions to the meal.
func (r *mealRepository) RestockStock(ctx context.Context, tx pgx.Tx, mealID uuid.UUID, qty int) error {
	query := `UPDATE meals SET quantity = quantity + $2 WHERE id = $1`

	if _, err := tx.Exec(ctx, query, mealID, qty); err != nil {
		return fmt.Errorf("failed to restock meal: %w", err)
	}
	return nil
}

// GetRestaurant retrieves a restaurant by its ID.
func (r *mealRepository) GetRestaurant(ctx context.Context, id uuid.UUID) (*model.Restaurant, error) {
	query := `
		SELECT id, owner_user_id, name, commission_rate
		FROM restaurants
		WHERE id = $1
	`

	var restaurant model.Restaurant
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&restaurant.ID, &restaurant.OwnerUserID, &restaurant.Name, &restaurant.CommissionRate)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query restaurant: %w", err)
	}

	return &restaurant, nil
}

// RestaurantIDsByOwner lists the restaurants owned by a user.
func (r *mealRepository) RestaurantIDsByOwner(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT id FROM restaurants WHERE owner_user_id = $1 ORDER BY id`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query restaurants by owner: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan restaurant id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating restaurants: %w", err)
	}

	return ids, nil
}
