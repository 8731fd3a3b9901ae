package repository

import (
	"context"
	"testing"
	"time"

	"lastbite/internal/model"

	"github.com/google/uuid"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB starts a PostgreSQL container, applies the schema and returns a
// pool wired the same way as the production one.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	ctx := context.Background()

	// Start PostgreSQL container
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	// Get connection string
	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Create connection pool with decimal support, mirroring database.NewPool
	poolConfig, err := pgxpool.ParseConfig(connStr)
	require.NoError(t, err)
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	require.NoError(t, err)

	// Create schema
	createSchema(t, pool)

	// Cleanup function
	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

// createSchema creates the necessary database schema for testing.
func createSchema(t *testing.T, pool *pgxpool.Pool) {
	ctx := context.Background()

	schema := `
		CREATE TABLE IF NOT EXISTS restaurants (
			id UUID PRIMARY KEY,
			owner_user_id UUID NOT NULL,
			name TEXT NOT NULL,
			commission_rate DECIMAL(5,2)
		);

		CREATE TABLE IF NOT EXISTS meals (
			id UUID PRIMARY KEY,
			restaurant_id UUID NOT NULL REFERENCES restaurants(id),
			name TEXT NOT NULL,
			price DECIMAL(10,2) NOT NULL CHECK (price >= 0),
			quantity INTEGER NOT NULL CHECK (quantity >= 0),
			available_from TIMESTAMPTZ,
			available_until TIMESTAMPTZ
		);

		CREATE TABLE IF NOT EXISTS orders (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			restaurant_id UUID NOT NULL REFERENCES restaurants(id),
			status TEXT NOT NULL,
			payment_method TEXT NOT NULL,
			total_amount DECIMAL(10,2) NOT NULL,
			notes TEXT,
			commission_rate DECIMAL(5,2),
			commission_amount DECIMAL(10,2),
			pickup_window_start TIMESTAMPTZ,
			pickup_window_end TIMESTAMPTZ,
			pickup_code_encrypted TEXT,
			pickup_code_attempts INTEGER NOT NULL DEFAULT 0,
			pickup_code_last_sent_at TIMESTAMPTZ,
			claim_code_encrypted TEXT,
			claim_code_expires_at TIMESTAMPTZ,
			claim_code_used_at TIMESTAMPTZ,
			cancel_reason TEXT,
			cancelled_by TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			accepted_at TIMESTAMPTZ,
			ready_at TIMESTAMPTZ,
			completed_at TIMESTAMPTZ,
			cancelled_at TIMESTAMPTZ,
			expired_at TIMESTAMPTZ,
			invoiced_at TIMESTAMPTZ,
			invoice_id UUID,
			restocked_at TIMESTAMPTZ
		);

		CREATE TABLE IF NOT EXISTS order_items (
			id UUID PRIMARY KEY,
			order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			meal_id UUID NOT NULL REFERENCES meals(id),
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			unit_price DECIMAL(10,2) NOT NULL
		);

		CREATE TABLE IF NOT EXISTS order_events (
			id UUID PRIMARY KEY,
			order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			type TEXT NOT NULL,
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL
		);

		CREATE TABLE IF NOT EXISTS restaurant_invoices (
			id UUID PRIMARY KEY,
			restaurant_id UUID NOT NULL REFERENCES restaurants(id),
			period_start TIMESTAMPTZ NOT NULL,
			period_end TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL,
			subtotal_sales DECIMAL(12,2) NOT NULL,
			commission_rate DECIMAL(5,2) NOT NULL,
			commission_total DECIMAL(12,2) NOT NULL,
			orders_count INTEGER NOT NULL,
			pdf_path TEXT,
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
	`

	_, err := pool.Exec(ctx, schema)
	require.NoError(t, err)
}

// seedRestaurant inserts a restaurant row and returns it.
func seedRestaurant(t *testing.T, pool *pgxpool.Pool, rate *decimal.Decimal) *model.Restaurant {
	t.Helper()

	restaurant := &model.Restaurant{
		ID:             uuid.New(),
		OwnerUserID:    uuid.New(),
		Name:           "Test Kitchen",
		CommissionRate: rate,
	}

	_, err := pool.Exec(context.Background(),
		`INSERT INTO restaurants (id, owner_user_id, name, commission_rate) VALUES ($1, $2, $3, $4)`,
		restaurant.ID, restaurant.OwnerUserID, restaurant.Name, restaurant.CommissionRate)
	require.NoError(t, err)

	return restaurant
}

// seedMeal inserts a meal row and returns it.
func seedMeal(t *testing.T, pool *pgxpool.Pool, restaurantID uuid.UUID, price decimal.Decimal, qty int) *model.Meal {
	t.Helper()

	meal := &model.Meal{
		ID:           uuid.New(),
		RestaurantID: restaurantID,
		Name:         "Surprise Box",
		Price:        price,
		Quantity:     qty,
	}

	_, err := pool.Exec(context.Background(),
		`INSERT INTO meals (id, restaurant_id, name, price, quantity) VALUES ($1, $2, $3, $4, $5)`,
		meal.ID, meal.RestaurantID, meal.Name, meal.Price, meal.Quantity)
	require.NoError(t, err)

	return meal
}

// seedOrder inserts an order row in an arbitrary lifecycle state. Columns not
// covered by the fixture keep their defaults.
func seedOrder(t *testing.T, pool *pgxpool.Pool, order *model.Order) {
	t.Helper()

	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	if order.PaymentMethod == "" {
		order.PaymentMethod = model.PaymentCashOnPickup
	}

	_, err := pool.Exec(context.Background(), `
		INSERT INTO orders (
			id, user_id, restaurant_id, status, payment_method, total_amount, created_at,
			pickup_window_start, pickup_window_end, pickup_code_encrypted,
			commission_rate, commission_amount, completed_at, invoiced_at, restocked_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		order.ID, order.UserID, order.RestaurantID, string(order.Status),
		string(order.PaymentMethod), order.TotalAmount, order.CreatedAt,
		order.PickupWindowStart, order.PickupWindowEnd, order.PickupCodeEncrypted,
		order.CommissionRate, order.CommissionAmount, order.CompletedAt,
		order.InvoicedAt, order.RestockedAt)
	require.NoError(t, err)
}
