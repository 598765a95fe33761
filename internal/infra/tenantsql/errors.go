package tenantsql

import "errors"

var (
	// ErrTenantPoolNotFound: el tenant no tiene pool registrado (nunca se agregó o falló al inicializar).
	ErrTenantPoolNotFound = errors.New("tenant pool not found")

	// ErrAcquireTimeout: no se obtuvo conexión del pool dentro del timeout configurado.
	ErrAcquireTimeout = errors.New("tenant pool acquire timeout")

	// ErrDatabaseUnreachable: el test-connect de una base self-hosted falló.
	ErrDatabaseUnreachable = errors.New("could not reach database")

	// ErrDatabaseNotEmpty: la base self-hosted ya tiene tablas de usuario.
	ErrDatabaseNotEmpty = errors.New("database not empty")
)
