package logger

import (
	"time"

	"go.uber.org/zap"
)

// ---- HTTP ----

func RequestID(v string) zap.Field { return zap.String("request_id", v) }

func Method(v string) zap.Field { return zap.String("method", v) }

func Path(v string) zap.Field { return zap.String("path", v) }

func Status(v int) zap.Field { return zap.Int("status", v) }

func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

func ClientIP(v string) zap.Field { return zap.String("client_ip", v) }

func UserAgent(v string) zap.Field { return zap.String("user_agent", v) }

// ---- Negocio ----

// TenantID crea un campo para el ID del tenant.
func TenantID(v string) zap.Field { return zap.String("tenant_id", v) }

// UserID crea un campo para el ID del usuario.
func UserID(v string) zap.Field { return zap.String("user_id", v) }

// FamilyID identifica una familia de refresh tokens.
func FamilyID(v string) zap.Field { return zap.String("family_id", v) }

// JTI identifica un token concreto.
func JTI(v string) zap.Field { return zap.String("jti", v) }

// EventType / EventStatus reflejan la fila escrita en account_event_log.
func EventType(v string) zap.Field { return zap.String("event_type", v) }

func EventStatus(v string) zap.Field { return zap.String("event_status", v) }

// DBName / DBHost identifican la base física de un tenant (nunca credenciales).
func DBName(v string) zap.Field { return zap.String("db_name", v) }

func DBHost(v string) zap.Field { return zap.String("db_host", v) }

// ---- Sistema ----

func Component(v string) zap.Field { return zap.String("component", v) }

func Op(v string) zap.Field { return zap.String("op", v) }

func Layer(v string) zap.Field { return zap.String("layer", v) }

func Err(err error) zap.Field { return zap.Error(err) }

func Count(v int) zap.Field { return zap.Int("count", v) }

func String(key, v string) zap.Field { return zap.String(key, v) }

func Int(key string, v int) zap.Field { return zap.Int(key, v) }

func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }

func Any(key string, v any) zap.Field { return zap.Any(key, v) }
