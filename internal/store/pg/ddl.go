package pg

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// databaseAdmin ejecuta el DDL de tenants managed con el pool del manager database.
// Los identificadores se citan con pgx.Identifier; el DDL no acepta parámetros.
type databaseAdmin struct {
	pool      *pgxpool.Pool
	adminRole string
}

func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (a *databaseAdmin) CreateRole(ctx context.Context, role, password string) error {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return mapErr("begin create role", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, fmt.Sprintf("CREATE ROLE %s WITH LOGIN PASSWORD %s",
		quoteIdent(role), quoteLiteral(password))); err != nil {
		return mapErr("create role", err)
	}
	if a.adminRole != "" {
		if _, err := tx.Exec(ctx, fmt.Sprintf("GRANT %s TO %s", quoteIdent(role), quoteIdent(a.adminRole))); err != nil {
			return mapErr("grant role", err)
		}
	}
	return mapErr("commit create role", tx.Commit(ctx))
}

func (a *databaseAdmin) CreateDatabase(ctx context.Context, name, owner string) error {
	// CREATE DATABASE no puede correr dentro de una transacción.
	_, err := a.pool.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s OWNER %s", quoteIdent(name), quoteIdent(owner)))
	return mapErr("create database", err)
}

func (a *databaseAdmin) DropDatabase(ctx context.Context, name string) error {
	_, err := a.pool.Exec(ctx, fmt.Sprintf("DROP DATABASE IF EXISTS %s", quoteIdent(name)))
	return mapErr("drop database", err)
}

func (a *databaseAdmin) DropRole(ctx context.Context, role string) error {
	_, err := a.pool.Exec(ctx, fmt.Sprintf("DROP ROLE IF EXISTS %s", quoteIdent(role)))
	return mapErr("drop role", err)
}
