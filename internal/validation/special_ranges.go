package validation

import "net/netip"

// Rangos IANA special-purpose que no son globalmente alcanzables.
// Mantener al día con:
//   https://www.iana.org/assignments/iana-ipv4-special-registry
//   https://www.iana.org/assignments/iana-ipv6-special-registry

var nonGlobalV4 = mustPrefixes(
	"0.0.0.0/8",          // "this network"
	"10.0.0.0/8",         // private
	"100.64.0.0/10",      // shared address space (CGNAT)
	"127.0.0.0/8",        // loopback
	"169.254.0.0/16",     // link-local
	"172.16.0.0/12",      // private
	"192.0.0.0/24",       // IETF protocol assignments
	"192.0.2.0/24",       // TEST-NET-1
	"192.88.99.0/24",     // 6to4 relay anycast (deprecated)
	"192.168.0.0/16",     // private
	"198.18.0.0/15",      // benchmarking
	"198.51.100.0/24",    // TEST-NET-2
	"203.0.113.0/24",     // TEST-NET-3
	"224.0.0.0/4",        // multicast
	"240.0.0.0/4",        // reserved
	"255.255.255.255/32", // limited broadcast
)

// Excepciones globalmente alcanzables dentro de 192.0.0.0/24.
var globalV4Exceptions = mustPrefixes(
	"192.0.0.9/32",  // PCP anycast
	"192.0.0.10/32", // TURN anycast
)

var nonGlobalV6 = mustPrefixes(
	"::/96",          // unspecified, loopback, IPv4-compatible (deprecated)
	"64:ff9b:1::/48", // local-use IPv4/IPv6 translation
	"100::/64",       // discard-only
	"2001::/23",      // IETF protocol assignments
	"2001:db8::/32",  // documentation
	"2002::/16",      // 6to4 (IPv4 embebida)
	"3fff::/20",      // documentation
	"5f00::/16",      // SRv6 SIDs
	"fc00::/7",       // unique-local
	"fe80::/10",      // link-local
	"ff00::/8",       // multicast
)

// NAT64 well-known prefix: la IPv4 embebida decide.
var nat64WellKnown = netip.MustParsePrefix("64:ff9b::/96")

// Excepciones globalmente alcanzables dentro de 2001::/23.
var globalV6Exceptions = mustPrefixes(
	"2001:1::1/128",   // PCP anycast
	"2001:1::2/128",   // TURN anycast
	"2001:3::/32",     // AMT
	"2001:4:112::/48", // AS112-v6
	"2001:20::/28",    // ORCHIDv2
	"2001:30::/28",    // drone remote ID
)

func mustPrefixes(ss ...string) []netip.Prefix {
	out := make([]netip.Prefix, 0, len(ss))
	for _, s := range ss {
		out = append(out, netip.MustParsePrefix(s))
	}
	return out
}

func containedIn(addr netip.Addr, prefixes []netip.Prefix) bool {
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// IsGlobal reporta si addr es globalmente enrutable.
// Las IPv4-mapped (::ffff:a.b.c.d) se evalúan como IPv4.
func IsGlobal(addr netip.Addr) bool {
	addr = addr.Unmap()
	if !addr.IsValid() || addr.Zone() != "" {
		return false
	}
	if addr.Is4() {
		if containedIn(addr, globalV4Exceptions) {
			return true
		}
		return !containedIn(addr, nonGlobalV4)
	}
	if nat64WellKnown.Contains(addr) {
		b := addr.As16()
		return IsGlobal(netip.AddrFrom4([4]byte{b[12], b[13], b[14], b[15]}))
	}
	if containedIn(addr, globalV6Exceptions) {
		return true
	}
	return !containedIn(addr, nonGlobalV6)
}
