// Package validation contiene las reglas de formato de los requests de
// provisioning que protegen la infraestructura interna.
package validation

import (
	"errors"
	"net/netip"
	"strings"
)

var (
	ErrHostEmpty      = errors.New("host is required")
	ErrHostInvalid    = errors.New("host is not a valid hostname or IP address")
	ErrHostNotGlobal  = errors.New("host must be a publicly routable address")
	ErrHostLocalName  = errors.New("host must not be a local name")
	ErrPortOutOfRange = errors.New("port must be between 1025 and 65535")
)

// Sufijos de nombres que sólo resuelven dentro de una red local.
var localNameSuffixes = []string{".localhost", ".local", ".localdomain", ".internal"}

// DBHost valida el host de una base self-hosted: un hostname RFC 1123 con al
// menos un punto, o una IP globalmente enrutable.
func DBHost(raw string) error {
	host := strings.TrimSpace(raw)
	if host == "" {
		return ErrHostEmpty
	}

	// [::1] también es una forma válida de escribir una IPv6.
	if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = host[1 : len(host)-1]
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		if !IsGlobal(addr) {
			return ErrHostNotGlobal
		}
		return nil
	}

	name := strings.ToLower(strings.TrimSuffix(host, "."))
	if name == "localhost" {
		return ErrHostLocalName
	}
	for _, s := range localNameSuffixes {
		if strings.HasSuffix(name, s) {
			return ErrHostLocalName
		}
	}
	if !isHostname(name) {
		return ErrHostInvalid
	}
	return nil
}

func isHostname(name string) bool {
	if len(name) == 0 || len(name) > 253 {
		return false
	}
	labels := strings.Split(name, ".")
	if len(labels) < 2 {
		return false
	}
	for _, l := range labels {
		if !isLabel(l) {
			return false
		}
	}
	// Un TLD numérico es una IP mal formada, no un nombre.
	return !allDigits(labels[len(labels)-1])
}

func isLabel(l string) bool {
	if len(l) == 0 || len(l) > 63 {
		return false
	}
	if l[0] == '-' || l[len(l)-1] == '-' {
		return false
	}
	for i := 0; i < len(l); i++ {
		c := l[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-':
		default:
			return false
		}
	}
	return true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// DBPort exige un puerto no privilegiado: 1024 < port <= 65535.
func DBPort(port int) error {
	if port <= 1024 || port > 65535 {
		return ErrPortOutOfRange
	}
	return nil
}
