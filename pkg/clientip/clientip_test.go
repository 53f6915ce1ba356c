package clientip_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lockboxhq/lockbox/pkg/clientip"
)

func TestGetIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{
			name:       "remote addr fallback",
			remoteAddr: "203.0.113.7:51234",
			want:       "203.0.113.7",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "203.0.113.7",
			want:       "203.0.113.7",
		},
		{
			name:       "cloudflare header wins",
			headers:    map[string]string{"CF-Connecting-IP": "198.51.100.1", "X-Forwarded-For": "192.0.2.9"},
			remoteAddr: "10.0.0.1:80",
			want:       "198.51.100.1",
		},
		{
			name:       "forwarded-for first valid hop",
			headers:    map[string]string{"X-Forwarded-For": "not-an-ip, 192.0.2.9, 10.0.0.2"},
			remoteAddr: "10.0.0.1:80",
			want:       "192.0.2.9",
		},
		{
			name:       "x-real-ip",
			headers:    map[string]string{"X-Real-IP": "192.0.2.50"},
			remoteAddr: "10.0.0.1:80",
			want:       "192.0.2.50",
		},
		{
			name:       "invalid header values fall through",
			headers:    map[string]string{"CF-Connecting-IP": "garbage", "X-Real-IP": ""},
			remoteAddr: "203.0.113.7:443",
			want:       "203.0.113.7",
		},
		{
			name:       "ipv6 normalized",
			headers:    map[string]string{"X-Real-IP": "2001:db8:0:0:0:0:0:1"},
			remoteAddr: "10.0.0.1:80",
			want:       "2001:db8::1",
		},
		{
			name:       "unparseable remote addr",
			remoteAddr: "bogus",
			want:       "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientip.GetIP(r))
		})
	}
}
