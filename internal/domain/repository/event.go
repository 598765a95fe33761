package repository

import (
	"context"
	"encoding/json"
	"time"
)

// EventType clasifica las filas de account_event_log.
type EventType string

const (
	EventLogin   EventType = "login"
	EventRefresh EventType = "refresh"
)

// EventStatus es el resultado de un evento de cuenta.
type EventStatus string

const (
	EventSuccess EventStatus = "success"
	EventFailure EventStatus = "failure"
	EventBlocked EventStatus = "blocked"
	EventError   EventStatus = "error"
)

// AccountEvent es una entrada de auditoría. También alimenta el rate limiter.
type AccountEvent struct {
	UserID     *string
	Identifier *string
	Type       EventType
	Status     EventStatus
	IP         string
	UserAgent  string
	Detail     json.RawMessage
	CreatedAt  time.Time
}

// AccountEventRepository define operaciones sobre account_event_log.
type AccountEventRepository interface {
	Insert(ctx context.Context, e AccountEvent) error

	// CountFailuresByIP cuenta filas failure/blocked/error de la IP desde since.
	CountFailuresByIP(ctx context.Context, ip string, since time.Time) (int, error)
}
