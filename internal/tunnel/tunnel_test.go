package tunnel

import (
	"net"
	"strconv"
	"testing"
)

func TestRewrite(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://config.internal:1892/api", "http://127.0.0.1:40000/api"},
		{"https://config.internal/api?x=1", "https://127.0.0.1:40000/api?x=1"},
		{"ws://config.internal:1892/api/ws", "ws://127.0.0.1:40000/api/ws"},
	}
	for _, tt := range tests {
		got, err := rewrite(tt.in, 40000)
		if err != nil {
			t.Fatalf("%s: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("wanted: %q\ngot: %q", tt.want, got)
		}
	}

	if _, err := rewrite("/relative", 40000); err == nil {
		t.Fatalf("wanted error for url without host")
	}
}

func TestFreePort(t *testing.T) {
	port, err := freePort()
	if err != nil {
		t.Fatalf("freePort: %v", err)
	}
	ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		t.Fatalf("wanted port %d to be bindable: %v", port, err)
	}
	ln.Close()
}

