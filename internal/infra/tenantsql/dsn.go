package tenantsql

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kovacsdavid/obvia/internal/domain/repository"
)

// DSN arma la URL de conexión postgres para un descriptor de tenant.
// La password va codificada en el userinfo; nunca loguear el resultado.
func DSN(desc repository.DatabaseConnection) string {
	sslMode := desc.SSLMode
	if sslMode == "" {
		sslMode = repository.SSLModePrefer
	}
	q := url.Values{}
	q.Set("sslmode", sslMode)
	if desc.MaxPoolSize > 0 {
		q.Set("pool_max_conns", strconv.Itoa(desc.MaxPoolSize))
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(desc.User, desc.Password),
		Host:     net.JoinHostPort(desc.Host, strconv.Itoa(desc.Port)),
		Path:     "/" + desc.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// PoolConfig parsea el descriptor a un *pgxpool.Config listo para NewWithConfig.
func PoolConfig(desc repository.DatabaseConnection, connectTimeout time.Duration) (*pgxpool.Config, error) {
	pcfg, err := pgxpool.ParseConfig(DSN(desc))
	if err != nil {
		return nil, fmt.Errorf("tenantsql: parse descriptor for %s: %w", desc.Name, err)
	}
	if desc.MaxPoolSize > 0 {
		pcfg.MaxConns = int32(desc.MaxPoolSize)
	}
	pcfg.MinConns = 0
	if connectTimeout > 0 {
		pcfg.ConnConfig.ConnectTimeout = connectTimeout
	}
	return pcfg, nil
}
