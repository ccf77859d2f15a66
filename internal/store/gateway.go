// Package store is the durable store gateway: parameterized statements
// executed against the relational backing store.
package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Gateway executes parameterized statements. Placeholders are "?".
type Gateway interface {
	// Exec runs a write statement and returns the affected row count.
	Exec(ctx context.Context, statement string, params ...any) (int64, error)
	// Query runs a read statement and scans every row into dest.
	Query(ctx context.Context, dest any, statement string, params ...any) error
	// Transaction runs fn against a gateway bound to one transaction.
	Transaction(ctx context.Context, fn func(tx Gateway) error) error
}

// GormGateway Gateway backed by a GORM connection
type GormGateway struct {
	db *gorm.DB
}

// New wraps db
func New(db *gorm.DB) *GormGateway {
	return &GormGateway{db: db}
}

func (g *GormGateway) Exec(ctx context.Context, statement string, params ...any) (int64, error) {
	res := g.db.WithContext(ctx).Exec(statement, params...)
	if res.Error != nil {
		return 0, fmt.Errorf("exec: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (g *GormGateway) Query(ctx context.Context, dest any, statement string, params ...any) error {
	if err := g.db.WithContext(ctx).Raw(statement, params...).Scan(dest).Error; err != nil {
		return fmt.Errorf("query: %w", err)
	}
	return nil
}

func (g *GormGateway) Transaction(ctx context.Context, fn func(tx Gateway) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormGateway{db: tx})
	})
}

// Ping checks connectivity
func (g *GormGateway) Ping(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
