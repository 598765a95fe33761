// Package migrations embeds SQL migration files.
package migrations

import "embed"

// ManagerFS contains the control-plane (manager database) migrations.
//
//go:embed manager/*.sql
var ManagerFS embed.FS

// ManagerDir is the directory within ManagerFS where migrations live.
const ManagerDir = "manager"

// TenantFS contains the migrations applied to every tenant database.
//
//go:embed tenant/*.sql
var TenantFS embed.FS

// TenantDir is the directory within TenantFS where migrations live.
const TenantDir = "tenant"
