package validation

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDBHost(t *testing.T) {
	tests := []struct {
		host string
		want error
	}{
		{"example.com", nil},
		{"db.example.com", nil},
		{"8.8.8.8", nil},
		{"2001:4860:4860::8888", nil},
		{"[2606:4700:4700::1111]", nil},
		{"192.0.0.9", nil},
		{"2001:1::1", nil},
		{"2001:20::1", nil},
		{"64:ff9b::808:808", nil},
		{"  example.com  ", nil},
		{"Example.COM.", nil},

		{"", ErrHostEmpty},
		{"192.168.1.1", ErrHostNotGlobal},
		{"127.0.0.1", ErrHostNotGlobal},
		{"10.0.0.5", ErrHostNotGlobal},
		{"172.16.0.1", ErrHostNotGlobal},
		{"100.64.1.1", ErrHostNotGlobal},
		{"169.254.169.254", ErrHostNotGlobal},
		{"192.0.0.1", ErrHostNotGlobal},
		{"192.0.2.10", ErrHostNotGlobal},
		{"198.51.100.7", ErrHostNotGlobal},
		{"203.0.113.5", ErrHostNotGlobal},
		{"198.18.0.1", ErrHostNotGlobal},
		{"0.0.0.0", ErrHostNotGlobal},
		{"255.255.255.255", ErrHostNotGlobal},
		{"224.0.0.1", ErrHostNotGlobal},
		{"::1", ErrHostNotGlobal},
		{"::", ErrHostNotGlobal},
		{"fe80::1", ErrHostNotGlobal},
		{"fd00::1", ErrHostNotGlobal},
		{"2001:db8::1", ErrHostNotGlobal},
		{"::ffff:127.0.0.1", ErrHostNotGlobal},
		{"::ffff:10.0.0.1", ErrHostNotGlobal},
		{"::10.0.0.1", ErrHostNotGlobal},
		{"2002:7f00:1::", ErrHostNotGlobal},
		{"2002:c0a8:101::", ErrHostNotGlobal},
		{"2002:808:808::1", ErrHostNotGlobal},
		{"64:ff9b::a00:5", ErrHostNotGlobal},
		{"64:ff9b::7f00:1", ErrHostNotGlobal},
		{"64:ff9b::c0a8:101", ErrHostNotGlobal},
		{"64:ff9b:1::808:808", ErrHostNotGlobal},
		{"localhost", ErrHostLocalName},
		{"anything.local", ErrHostLocalName},
		{"db.localhost", ErrHostLocalName},
		{"host.localdomain", ErrHostLocalName},
		{"metadata.google.internal", ErrHostLocalName},
		{"postgres", ErrHostInvalid},
		{"-bad.example.com", ErrHostInvalid},
		{"bad-.example.com", ErrHostInvalid},
		{"under_score.example.com", ErrHostInvalid},
		{"a..example.com", ErrHostInvalid},
		{"1.2.3.999", ErrHostInvalid},
		{"example.com:5432", ErrHostInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			err := DBHost(tt.host)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestIsGlobal_MappedV4(t *testing.T) {
	assert.True(t, IsGlobal(netip.MustParseAddr("::ffff:8.8.8.8")))
	assert.False(t, IsGlobal(netip.MustParseAddr("::ffff:192.168.0.1")))
}

func TestDBPort(t *testing.T) {
	for _, p := range []int{0, -1, 80, 1024, 65536, 70000} {
		assert.ErrorIs(t, DBPort(p), ErrPortOutOfRange, "port %d", p)
	}
	for _, p := range []int{1025, 5432, 65535} {
		assert.NoError(t, DBPort(p), "port %d", p)
	}
}
