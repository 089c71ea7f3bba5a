package httpx

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/fincontrol/attachd/internal/config"
)

func TestNew_Modes(t *testing.T) {
	cases := []struct {
		name    string
		cfg     config.Proxy
		wantErr bool
	}{
		{"default no-proxy", config.Proxy{}, false},
		{"explicit no-proxy", config.Proxy{Mode: "no-proxy"}, false},
		{"system", config.Proxy{Mode: "system"}, false},
		{"basic with host", config.Proxy{Mode: "basic", Host: "proxy.local", Port: 3128}, false},
		{"basic without host", config.Proxy{Mode: "basic"}, true},
		{"ntlm with host", config.Proxy{Mode: "ntlm", Host: "proxy.local"}, false},
		{"ntlm without host", config.Proxy{Mode: "ntlm"}, true},
		{"garbage", config.Proxy{Mode: "socks5"}, true},
	}
	for _, c := range cases {
		client, err := New(c.cfg)
		if c.wantErr {
			if err == nil {
				t.Errorf("%s: expected error", c.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: %v", c.name, err)
			continue
		}
		if client == nil {
			t.Errorf("%s: nil client", c.name)
		}
	}
}

func TestWithRetries_ZeroLeavesClientUntouched(t *testing.T) {
	base := &http.Client{}
	if got := WithRetries(base, 0, zerolog.Nop()); got != base {
		t.Error("retries=0 must return the client unchanged")
	}
}

func TestWithRetries_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	client := WithRetries(srv.Client(), 5, zerolog.Nop())
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 after retries", resp.StatusCode)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}
