package infosimples

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const successBody = `{
	"code": 200,
	"code_message": "A requisição foi processada com sucesso.",
	"header": {"requested_at": "2024-05-01T10:00:00.000-03:00"},
	"data": [{"perdcomp": [
		{"perdcomp": "12345.67890.150323.1.3.04-1234", "situacao": "Em análise", "tipo_credito": "Pagamento indevido"},
		{"perdcomp": "12345.67891.150323.1.8.01-1234", "situacao": "Pedido de cancelamento deferido"}
	]}],
	"site_receipts": ["https://storage.example.com/receipt.html"]
}`

type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) Sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

func newTestClient(t *testing.T, url string, sleeper *sleepRecorder) *Client {
	t.Helper()

	policy := DefaultRetryPolicy()
	policy.Jitter = func(d time.Duration) time.Duration { return d }
	policy.Sleep = sleeper.Sleep

	c, err := NewClient(Options{BaseURL: url, Token: "secret", Retry: policy})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	c.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestNewClientRequiresToken(t *testing.T) {
	if _, err := NewClient(Options{}); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("err = %v", err)
	}
}

func TestFetchSendsForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
			return
		}
		want := map[string]string{
			"token":       "secret",
			"cnpj":        "46241741000165",
			"data_inicio": "2019-05-01",
			"data_fim":    "2024-05-01",
			"timeout":     "600",
		}
		for k, v := range want {
			if got := r.PostForm.Get(k); got != v {
				t.Errorf("form %s = %q, want %q", k, got, v)
			}
		}
		_, _ = w.Write([]byte(successBody))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, &sleepRecorder{})
	res, err := c.Fetch(context.Background(), Request{CNPJ: "46241741000165"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(res.Entries) != 2 || res.MappedCount != 2 {
		t.Fatalf("entries = %d, mapped = %d", len(res.Entries), res.MappedCount)
	}
	if res.SiteReceipt != "https://storage.example.com/receipt.html" {
		t.Fatalf("site receipt = %q", res.SiteReceipt)
	}
	if res.RequestedAt != "2024-05-01T10:00:00.000-03:00" {
		t.Fatalf("requested at = %q", res.RequestedAt)
	}
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(successBody))
	}))
	defer srv.Close()

	sleeper := &sleepRecorder{}
	c := newTestClient(t, srv.URL, sleeper)
	res, err := c.Fetch(context.Background(), Request{CNPJ: "46241741000165"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(res.Entries) != 2 {
		t.Fatalf("entries = %d", len(res.Entries))
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
	want := []time.Duration{1500 * time.Millisecond, 3000 * time.Millisecond}
	if len(sleeper.waits) != len(want) {
		t.Fatalf("waits = %v", sleeper.waits)
	}
	for i := range want {
		if sleeper.waits[i] != want[i] {
			t.Errorf("wait %d = %s, want %s", i, sleeper.waits[i], want[i])
		}
	}
}

func TestFetchGivesUpAfterAllAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code": 500, "code_message": "Erro interno"}`))
	}))
	defer srv.Close()

	sleeper := &sleepRecorder{}
	c := newTestClient(t, srv.URL, sleeper)
	_, err := c.Fetch(context.Background(), Request{CNPJ: "46241741000165"})

	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *ProviderError", err)
	}
	if pe.Status != http.StatusInternalServerError || pe.ProviderMessage == nil || *pe.ProviderMessage != "Erro interno" {
		t.Fatalf("provider error = %+v", pe)
	}
	if got := atomic.LoadInt32(&calls); got != DefaultRetryAttempts {
		t.Fatalf("calls = %d", got)
	}
	if len(sleeper.waits) != DefaultRetryAttempts-1 {
		t.Fatalf("waits = %v", sleeper.waits)
	}
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	sleeper := &sleepRecorder{}
	c := newTestClient(t, srv.URL, sleeper)
	_, err := c.Fetch(context.Background(), Request{CNPJ: "46241741000165"})

	var pe *ProviderError
	if !errors.As(err, &pe) || pe.HTTPStatusCode() != http.StatusNotFound {
		t.Fatalf("err = %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
	if len(sleeper.waits) != 0 {
		t.Fatalf("no sleep expected, got %v", sleeper.waits)
	}
}

func TestFetchBusinessErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"code": 606, "code_message": "Parâmetro inválido"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, &sleepRecorder{})
	_, err := c.Fetch(context.Background(), Request{CNPJ: "46241741000165"})

	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v", err)
	}
	if pe.Status != http.StatusOK || pe.ProviderCode == nil || *pe.ProviderCode != 606 {
		t.Fatalf("provider error = %+v", pe)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("calls = %d", got)
	}
}

func TestFetchNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code": 612, "code_message": "Nenhum resultado", "data": []}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, &sleepRecorder{})
	res, err := c.Fetch(context.Background(), Request{CNPJ: "46241741000165"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Code != CodeNoResults || len(res.Entries) != 0 {
		t.Fatalf("result = %+v", res)
	}
}

func TestDecode(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   Outcome
	}{
		{"success", 200, successBody, OutcomeSuccess},
		{"no results", 200, `{"code": 612}`, OutcomeEmpty},
		{"ok without filings", 200, `{"code": 200, "data": [{"perdcomp": []}]}`, OutcomeEmpty},
		{"business", 200, `{"code": 601, "message": "Token inválido"}`, OutcomeBusinessError},
		{"client error", 400, `{"errors": [{"message": "bad cnpj"}]}`, OutcomeBusinessError},
		{"server error", 502, ``, OutcomeTransientError},
		{"broken body", 200, `<html>`, OutcomeTransientError},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d := Decode(c.status, http.StatusText(c.status), []byte(c.body))
			if d.Outcome != c.want {
				t.Fatalf("outcome = %s, want %s", d.Outcome, c.want)
			}
			if (d.Err != nil) != (c.want == OutcomeBusinessError || c.want == OutcomeTransientError) {
				t.Fatalf("unexpected err field: %+v", d.Err)
			}
		})
	}

	d := Decode(400, "Bad Request", []byte(`{"errors": [{"message": "bad cnpj"}]}`))
	if d.Err.ProviderMessage == nil || *d.Err.ProviderMessage != "bad cnpj" {
		t.Fatalf("message from errors[0] not picked up: %+v", d.Err)
	}
}

func TestWithRetryStopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	policy := RetryPolicy{
		Attempts: 3,
		Delays:   DefaultRetryDelays,
		Jitter:   func(d time.Duration) time.Duration { return d },
		Sleep: func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		},
	}

	_, err := WithRetry(ctx, policy, func(context.Context) (int, error) {
		calls++
		return 0, &ProviderError{Status: 503}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d", calls)
	}
}

func TestWithRetryUsesDefaultDelayPastTheList(t *testing.T) {
	var waits []time.Duration
	policy := RetryPolicy{
		Attempts:     4,
		Delays:       []time.Duration{time.Second},
		DefaultDelay: 2 * time.Second,
		Jitter:       func(d time.Duration) time.Duration { return d },
		Sleep: func(_ context.Context, d time.Duration) error {
			waits = append(waits, d)
			return nil
		},
	}

	_, _ = WithRetry(context.Background(), policy, func(context.Context) (string, error) {
		return "", &ProviderError{Status: 0}
	})
	want := []time.Duration{time.Second, 2 * time.Second, 2 * time.Second}
	if len(waits) != len(want) {
		t.Fatalf("waits = %v", waits)
	}
	for i := range want {
		if waits[i] != want[i] {
			t.Fatalf("waits = %v, want %v", waits, want)
		}
	}
}

func TestJitterBounds(t *testing.T) {
	base := 1500 * time.Millisecond
	for i := 0; i < 200; i++ {
		j := Jitter(base)
		if j < 1200*time.Millisecond || j > 1800*time.Millisecond {
			t.Fatalf("jitter %s out of bounds", j)
		}
	}
	if Jitter(0) != 0 {
		t.Fatal("zero base should not wait")
	}
}

func TestResolveRange(t *testing.T) {
	today := time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC)
	cases := []struct {
		start, end         string
		wantStart, wantEnd string
	}{
		{"", "", "2019-05-01", "2024-05-01"},
		{"2020-01-01", "2021-01-01", "2020-01-01", "2021-01-01"},
		{"2022-01-01", "2021-01-01", "2016-01-01", "2021-01-01"},
		{"garbage", "2021-06-30T00:00:00Z", "2016-06-30", "2021-06-30"},
	}
	for _, c := range cases {
		s, e := ResolveRange(c.start, c.end, today)
		if s != c.wantStart || e != c.wantEnd {
			t.Errorf("ResolveRange(%q, %q) = %s, %s; want %s, %s", c.start, c.end, s, e, c.wantStart, c.wantEnd)
		}
	}
}
