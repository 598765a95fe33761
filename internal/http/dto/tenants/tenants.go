// Package tenants contiene los DTOs de /api/tenants.
package tenants

import (
	"strings"
	"time"

	"github.com/kovacsdavid/obvia/internal/domain/repository"
	svc "github.com/kovacsdavid/obvia/internal/http/services/tenants"
)

// Redacted reemplaza db_password en toda respuesta.
const Redacted = "[REDACTED]"

// CreateTenantRequest es el body de POST /api/tenants.
// Los db_* sólo se leen con is_self_hosted=true.
type CreateTenantRequest struct {
	Name         string  `json:"name"`
	IsSelfHosted bool    `json:"is_self_hosted"`
	DBHost       *string `json:"db_host,omitempty"`
	DBPort       *int    `json:"db_port,omitempty"`
	DBName       *string `json:"db_name,omitempty"`
	DBUser       *string `json:"db_user,omitempty"`
	DBPassword   *string `json:"db_password,omitempty"`
	DBSSLMode    *string `json:"db_ssl_mode,omitempty"`
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// ToInput convierte el request en el input del provisioner.
func (r *CreateTenantRequest) ToInput() svc.CreateInput {
	in := svc.CreateInput{
		Name:         strings.TrimSpace(r.Name),
		IsSelfHosted: r.IsSelfHosted,
	}
	if r.IsSelfHosted {
		in.DBHost = deref(r.DBHost)
		in.DBPort = deref(r.DBPort)
		in.DBName = deref(r.DBName)
		in.DBUser = deref(r.DBUser)
		in.DBPassword = deref(r.DBPassword)
		in.DBSSLMode = deref(r.DBSSLMode)
	}
	return in
}

// Validate devuelve errores por campo, o nil.
func (r *CreateTenantRequest) Validate() map[string]string {
	errs := map[string]string{}
	name := strings.TrimSpace(r.Name)
	switch {
	case name == "":
		errs["name"] = "required"
	case len(name) > 255:
		errs["name"] = "too long"
	}
	if r.IsSelfHosted {
		for k, v := range svc.ValidateSelfHosted(r.ToInput()) {
			errs[k] = v
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// TenantResponse es un tenant creado. db_password siempre va redactado.
type TenantResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	IsSelfHosted  bool      `json:"is_self_hosted"`
	DBHost        string    `json:"db_host"`
	DBPort        int       `json:"db_port"`
	DBName        string    `json:"db_name"`
	DBUser        string    `json:"db_user"`
	DBPassword    string    `json:"db_password"`
	DBMaxPoolSize int       `json:"db_max_pool_size"`
	DBSSLMode     string    `json:"db_ssl_mode"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func NewTenantResponse(t *repository.Tenant) TenantResponse {
	return TenantResponse{
		ID:            t.ID,
		Name:          t.Name,
		IsSelfHosted:  t.IsSelfHosted,
		DBHost:        t.DB.Host,
		DBPort:        t.DB.Port,
		DBName:        t.DB.Name,
		DBUser:        t.DB.User,
		DBPassword:    Redacted,
		DBMaxPoolSize: t.DB.MaxPoolSize,
		DBSSLMode:     t.DB.SSLMode,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

// MembershipResponse es un elemento de GET /api/tenants.
type MembershipResponse struct {
	TenantID      string    `json:"tenant_id"`
	Name          string    `json:"name"`
	Role          string    `json:"role"`
	IsSelfHosted  bool      `json:"is_self_hosted"`
	LastActivated time.Time `json:"last_activated"`
}

func NewMembershipList(ms []repository.Membership) []MembershipResponse {
	out := make([]MembershipResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, MembershipResponse{
			TenantID:      m.TenantID,
			Name:          m.TenantName,
			Role:          m.Role,
			IsSelfHosted:  m.IsSelfHosted,
			LastActivated: m.LastActivated,
		})
	}
	return out
}
