package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/bhargavtamarapalli/FabricSpeaks-sub001/internal/domain"
)

// CartStore owns the persisted cart and line-item records. Every mutation
// returns the recomputed materialized view so callers never assemble carts
// themselves.
type CartStore interface {
	GetOrCreate(ctx context.Context, owner domain.OwnerKey) (domain.Cart, error)
	GetByOwner(ctx context.Context, owner domain.OwnerKey) (domain.Cart, error)
	GetItem(ctx context.Context, cartID, itemID uuid.UUID) (domain.CartItem, error)
	FindLine(ctx context.Context, cartID, productID uuid.UUID, variantID *uuid.UUID, size string) (domain.CartItem, error)
	ListItems(ctx context.Context, cartID uuid.UUID) ([]domain.CartItem, error)
	AddItem(ctx context.Context, cartID uuid.UUID, item domain.NewItem) (domain.CartView, error)
	UpdateItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity int) (domain.CartView, error)
	RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) (domain.CartView, error)
	MergeGuestCart(ctx context.Context, accountID, sessionID string) (domain.CartView, error)
	ComputeCart(ctx context.Context, cartID uuid.UUID) (domain.CartView, error)
	ClearItems(ctx context.Context, owner domain.OwnerKey) error
	ExpiredGuestCartIDs(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
	DeleteCarts(ctx context.Context, ids []uuid.UUID) (int64, error)
}

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type Repository struct {
	db *sql.DB

	// mergeCaptureHook, when set, runs inside the merge transaction right
	// after the guest lines are captured. Tests use it to interleave
	// writes into that window.
	mergeCaptureHook func()
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &Repository{db: db}, nil
}

// NewRepositoryWithDB wraps an already-open connection; integration tests
// use it to point at a container database.
func NewRepositoryWithDB(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) RunMigrations(migrationsDirPath string) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "storefront_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
