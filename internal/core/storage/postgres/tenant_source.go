package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aevon-lab/projection-daemon/internal/core/storage"
)

// TenantSource reads the tenant_databases table of the master database.
type TenantSource struct {
	db *sql.DB
}

// NewTenantSource shares the master database connection.
func NewTenantSource(db *sql.DB) *TenantSource {
	return &TenantSource{db: db}
}

// TenantDatabases lists registered tenant databases ordered by name.
func (s *TenantSource) TenantDatabases(ctx context.Context) ([]storage.TenantDatabase, error) {
	rows, err := s.db.QueryContext(ctx, querySelectTenantDatabases)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenant databases: %w", err)
	}
	defer rows.Close()

	var tenants []storage.TenantDatabase
	for rows.Next() {
		var tenant storage.TenantDatabase
		if err := rows.Scan(&tenant.Name, &tenant.DSN); err != nil {
			return nil, fmt.Errorf("failed to scan tenant database: %w", err)
		}
		tenants = append(tenants, tenant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tenant databases: %w", err)
	}
	return tenants, nil
}
