package ai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"aira-go/internal/config"
	"aira-go/pkg/log"
)

func TestMain(m *testing.M) {
	log.Init("error", "console", "")
	os.Exit(m.Run())
}

func TestGenerateLocalEcho(t *testing.T) {
	// 无 key 无 url：零网络调用，确定性回显
	c := NewClient(config.AIConfig{}, WithHTTPClient(&http.Client{
		Transport: failingTransport{t},
	}))

	reply := c.Generate(context.Background(), "hello")
	if reply.Text != "I heard: hello" {
		t.Errorf("reply.Text = %q, want %q", reply.Text, "I heard: hello")
	}
	if reply.Err != "" {
		t.Errorf("reply.Err = %q, want empty", reply.Err)
	}
}

// failingTransport 使任何意外的网络调用直接导致测试失败。
type failingTransport struct{ t *testing.T }

func (f failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	f.t.Error("local echo mode must not perform network I/O")
	return nil, errors.New("unexpected network call")
}

func TestGenerateParsesUpstreamReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer gsk_test" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"hey there"}}]}`))
	}))
	defer srv.Close()

	cfg := config.AIConfig{APIKey: "gsk_test", APIURL: srv.URL + "/groq.com/chat", Model: "llama-3.3-70b-versatile"}
	c := NewClient(cfg, WithSleep(func(time.Duration) {}))

	reply := c.Generate(context.Background(), "hi")
	if reply.Text != "hey there" {
		t.Errorf("reply.Text = %q, want %q", reply.Text, "hey there")
	}
	if reply.Err != "" {
		t.Errorf("reply.Err = %q, want empty", reply.Err)
	}
	if len(reply.Meta) == 0 {
		t.Error("reply.Meta should carry the raw response body")
	}
}

func TestGenerateRetriesOnRateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"reply":"made it"}`))
	}))
	defer srv.Close()

	var delays []time.Duration
	cfg := config.AIConfig{APIKey: "tok", APIURL: srv.URL}
	c := NewClient(cfg, WithSleep(func(d time.Duration) { delays = append(delays, d) }))

	reply := c.Generate(context.Background(), "hi")
	if reply.Text != "made it" {
		t.Fatalf("reply.Text = %q, want %q", reply.Text, "made it")
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("upstream called %d times, want 3", calls)
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(delays) != len(want) || delays[0] != want[0] || delays[1] != want[1] {
		t.Errorf("backoff delays = %v, want %v", delays, want)
	}
}

func TestGenerateExhaustsRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	var delays []time.Duration
	c := NewClient(config.AIConfig{APIKey: "tok", APIURL: srv.URL},
		WithSleep(func(d time.Duration) { delays = append(delays, d) }))

	reply := c.Generate(context.Background(), "hi")
	if reply.Err == "" {
		t.Error("exhausted retries must set reply.Err")
	}
	if reply.Text != apologyText {
		t.Errorf("reply.Text = %q, want the apology fallback", reply.Text)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("upstream called %d times, want 3", calls)
	}
	if len(delays) != 2 {
		t.Errorf("got %d backoff delays, want 2", len(delays))
	}
}

func TestGenerateDoesNotRetryOtherErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(config.AIConfig{APIKey: "tok", APIURL: srv.URL},
		WithSleep(func(time.Duration) { t.Error("non-429 errors must not back off") }))

	reply := c.Generate(context.Background(), "hi")
	if reply.Err == "" || reply.Text != apologyText {
		t.Errorf("reply = %+v, want apology with Err set", reply)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("upstream called %d times, want 1", calls)
	}
}

func TestProbe(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		c := NewClient(config.AIConfig{})
		if _, err := c.Probe(context.Background()); !errors.Is(err, ErrNotConfigured) {
			t.Errorf("Probe error = %v, want ErrNotConfigured", err)
		}
	})

	t.Run("reports upstream status and body preview", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"pong":true}`))
		}))
		defer srv.Close()

		c := NewClient(config.AIConfig{APIKey: "tok", APIURL: srv.URL, Model: "llama-3.3-70b-versatile"})
		res, err := c.Probe(context.Background())
		if err != nil {
			t.Fatalf("Probe returned error: %v", err)
		}
		if res.StatusCode != http.StatusOK {
			t.Errorf("StatusCode = %d, want 200", res.StatusCode)
		}
		if res.Provider != "generic" {
			t.Errorf("Provider = %q, want generic", res.Provider)
		}
		preview, ok := res.BodyPreview.(map[string]interface{})
		if !ok || preview["pong"] != true {
			t.Errorf("BodyPreview = %v", res.BodyPreview)
		}
	})

	t.Run("unreachable upstream surfaces an error", func(t *testing.T) {
		c := NewClient(config.AIConfig{APIKey: "tok", APIURL: "http://127.0.0.1:0"})
		if _, err := c.Probe(context.Background()); err == nil {
			t.Error("Probe must return an error when the upstream is unreachable")
		}
	})
}
