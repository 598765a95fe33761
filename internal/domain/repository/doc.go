// Package repository define los tipos de dominio del control plane (manager
// database) y las interfaces de repositorio que los servicios consumen.
//
// Las implementaciones concretas viven en internal/store/pg.
//
//	┌──────────────────────────────────────────────────────┐
//	│   services (auth, tenants) / tenantsql.Manager       │
//	└──────────────────────────────────────────────────────┘
//	                          │
//	                          ▼
//	┌──────────────────────────────────────────────────────┐
//	│   domain/repository (interfaces)                     │
//	│   UserRepository, TenantRepository, TokenRepository  │
//	└──────────────────────────────────────────────────────┘
//	                          │
//	                          ▼
//	┌──────────────────────────────────────────────────────┐
//	│   store/pg (pgx/v5)                                  │
//	└──────────────────────────────────────────────────────┘
//
// Convenciones:
//   - Context siempre es el primer parámetro
//   - Los IDs viajan como string (UUID canónico)
//   - Errores de dominio están en errors.go
package repository
