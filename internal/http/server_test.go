package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"dtmoney/internal/core"
	"dtmoney/internal/ports"
	"dtmoney/internal/storage/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingPublisher struct {
	mu      sync.Mutex
	created []int64
	deleted []int64
	err     error
}

func (p *recordingPublisher) PublishCreated(ctx context.Context, tx core.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, tx.ID)
	return p.err
}

func (p *recordingPublisher) PublishDeleted(ctx context.Context, id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, id)
	return p.err
}

var base = time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

func seeded() *memory.Store {
	return memory.New(
		core.Transaction{ID: 1, Description: "Salary", Type: core.Income, Price: 5000, Category: "Work", CreatedAt: base},
		core.Transaction{ID: 2, Description: "Coffee", Type: core.Outcome, Price: 12, Category: "Food", CreatedAt: base.Add(2 * time.Hour)},
		core.Transaction{ID: 3, Description: "Groceries", Type: core.Outcome, Price: 300, Category: "Food", CreatedAt: base.Add(time.Hour)},
	)
}

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	if opts.Repository == nil {
		opts.Repository = seeded()
	}
	srv := NewServer(opts)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func ids(t *testing.T, rr *httptest.ResponseRecorder) []int64 {
	t.Helper()
	var txs []core.Transaction
	if err := json.Unmarshal(rr.Body.Bytes(), &txs); err != nil {
		t.Fatalf("decode list: %v (%s)", err, rr.Body.String())
	}
	out := make([]int64, 0, len(txs))
	for _, tx := range txs {
		out = append(out, tx.ID)
	}
	return out
}

func TestListTransactions(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   []int64
	}{
		{name: "defaults to createdAt ascending", target: "/transactions", want: []int64{1, 3, 2}},
		{name: "sort by createdAt", target: "/transactions?_sort=createdAt", want: []int64{1, 3, 2}},
		{name: "sort desc", target: "/transactions?_sort=createdAt&_order=desc", want: []int64{2, 3, 1}},
		{name: "sort by price", target: "/transactions?_sort=price", want: []int64{2, 3, 1}},
		{name: "full text search", target: "/transactions?q=coffee", want: []int64{2}},
		{name: "search matches category", target: "/transactions?q=food&_sort=createdAt", want: []int64{3, 2}},
		{name: "type filter", target: "/transactions?type=income", want: []int64{1}},
		{name: "no match", target: "/transactions?q=travel", want: []int64{}},
	}

	srv := newTestServer(t, Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodGet, tt.target, "")
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
			}
			got := ids(t, rr)
			if len(got) != len(tt.want) {
				t.Fatalf("ids = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("ids = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestListRejectsUnknownType(t *testing.T) {
	srv := newTestServer(t, Options{})
	rr := do(t, srv, http.MethodGet, "/transactions?type=transfer", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestGetTransaction(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodGet, "/transactions/2", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"description":"Coffee"`) {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}

	for _, target := range []string{"/transactions/99", "/transactions/abc"} {
		if rr := do(t, srv, http.MethodGet, target, ""); rr.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", target, rr.Code)
		}
	}
}

func TestCreateTransaction(t *testing.T) {
	pub := &recordingPublisher{}
	srv := newTestServer(t, Options{Repository: memory.New(), Publisher: pub})

	body := `{"description":"Lunch","price":25,"category":"Food","type":"outcome","createdAt":"2024-04-02T12:00:00Z"}`
	rr := do(t, srv, http.MethodPost, "/transactions", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}

	var got core.Transaction
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := core.Transaction{ID: 1, Description: "Lunch", Price: 25, Category: "Food", Type: core.Outcome, CreatedAt: time.Date(2024, 4, 2, 12, 0, 0, 0, time.UTC)}
	if got.ID != want.ID || got.Description != want.Description || got.Price != want.Price ||
		got.Category != want.Category || got.Type != want.Type || !got.CreatedAt.Equal(want.CreatedAt) {
		t.Fatalf("created = %+v, want %+v", got, want)
	}
	if len(pub.created) != 1 || pub.created[0] != 1 {
		t.Fatalf("published = %v", pub.created)
	}
}

func TestCreateDefaultsCreatedAt(t *testing.T) {
	srv := newTestServer(t, Options{Repository: memory.New()})

	before := time.Now().Add(-time.Second)
	rr := do(t, srv, http.MethodPost, "/transactions", `{"description":"Tip","price":5,"category":"Food","type":"income"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	var got core.Transaction
	json.Unmarshal(rr.Body.Bytes(), &got)
	if got.CreatedAt.Before(before) {
		t.Fatalf("createdAt not defaulted: %v", got.CreatedAt)
	}
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"description":`},
		{name: "bad type", body: `{"description":"x","price":1,"category":"y","type":"transfer"}`},
		{name: "missing type", body: `{"description":"x","price":1,"category":"y"}`},
		{name: "price as text", body: `{"description":"x","price":"1","category":"y","type":"income"}`},
	}

	pub := &recordingPublisher{}
	repo := memory.New()
	srv := newTestServer(t, Options{Repository: repo, Publisher: pub})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/transactions", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
			}
			if !strings.Contains(rr.Body.String(), `"error"`) {
				t.Fatalf("expected error body, got %s", rr.Body.String())
			}
		})
	}
	if repo.Len() != 0 || len(pub.created) != 0 {
		t.Fatalf("invalid requests must not store or publish")
	}
}

func TestDeleteTransaction(t *testing.T) {
	pub := &recordingPublisher{}
	srv := newTestServer(t, Options{Publisher: pub})

	rr := do(t, srv, http.MethodDelete, "/transactions/2", "")
	if rr.Code != http.StatusOK || strings.TrimSpace(rr.Body.String()) != "{}" {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	if rr := do(t, srv, http.MethodDelete, "/transactions/2", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rr.Code)
	}
	if len(pub.deleted) != 1 || pub.deleted[0] != 2 {
		t.Fatalf("published = %v", pub.deleted)
	}
}

func TestWritesInvalidateListCache(t *testing.T) {
	srv := newTestServer(t, Options{})

	if got := ids(t, do(t, srv, http.MethodGet, "/transactions", "")); len(got) != 3 {
		t.Fatalf("initial list = %v", got)
	}
	do(t, srv, http.MethodPost, "/transactions", `{"description":"Book","price":60,"category":"Leisure","type":"outcome"}`)
	if got := ids(t, do(t, srv, http.MethodGet, "/transactions", "")); len(got) != 4 {
		t.Fatalf("list after create = %v", got)
	}
	do(t, srv, http.MethodDelete, "/transactions/1", "")
	if got := ids(t, do(t, srv, http.MethodGet, "/transactions", "")); len(got) != 3 || got[0] != 3 || got[2] != 4 {
		t.Fatalf("list after delete = %v", got)
	}
}

// pausingRepository holds the first List call after it has read its
// snapshot until release is closed.
type pausingRepository struct {
	ports.TransactionRepository
	once    sync.Once
	reached chan struct{}
	release chan struct{}
}

func (r *pausingRepository) List(ctx context.Context, q ports.ListQuery) ([]core.Transaction, error) {
	txs, err := r.TransactionRepository.List(ctx, q)
	r.once.Do(func() {
		close(r.reached)
		<-r.release
	})
	return txs, err
}

func TestListInFlightDuringWriteIsNotCached(t *testing.T) {
	repo := &pausingRepository{
		TransactionRepository: seeded(),
		reached:               make(chan struct{}),
		release:               make(chan struct{}),
	}
	srv := newTestServer(t, Options{Repository: repo})

	slow := make(chan *httptest.ResponseRecorder, 1)
	go func() { slow <- do(t, srv, http.MethodGet, "/transactions", "") }()
	<-repo.reached

	rr := do(t, srv, http.MethodPost, "/transactions", `{"description":"Book","price":60,"category":"Leisure","type":"outcome"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rr.Code)
	}
	close(repo.release)
	if got := ids(t, <-slow); len(got) != 3 {
		t.Fatalf("in-flight list = %v, want the pre-write snapshot", got)
	}

	if got := ids(t, do(t, srv, http.MethodGet, "/transactions", "")); len(got) != 4 {
		t.Fatalf("list after create = %v, want 4 transactions", got)
	}
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	srv := newTestServer(t, Options{Publisher: pub})

	rr := do(t, srv, http.MethodPost, "/transactions", `{"description":"Gift","price":80,"category":"Misc","type":"income"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestRateLimitOnWrites(t *testing.T) {
	srv := newTestServer(t, Options{RateLimitPerMinute: 1})

	first := do(t, srv, http.MethodDelete, "/transactions/1", "")
	second := do(t, srv, http.MethodDelete, "/transactions/2", "")
	if first.Code != http.StatusOK || second.Code != http.StatusTooManyRequests {
		t.Fatalf("codes = %d, %d", first.Code, second.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/transactions", ""); rr.Code != http.StatusOK {
		t.Fatalf("reads must not be limited, got %d", rr.Code)
	}
}

func deleteFrom(srv *Server, id, forwardedFor string) int {
	req := httptest.NewRequest(http.MethodDelete, "/transactions/"+id, nil)
	req.RemoteAddr = "192.0.2.10:40000"
	req.Header.Set("X-Forwarded-For", forwardedFor)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr.Code
}

func TestRateLimitIgnoresUntrustedForwardedFor(t *testing.T) {
	srv := newTestServer(t, Options{RateLimitPerMinute: 1})

	if code := deleteFrom(srv, "1", "203.0.113.1"); code != http.StatusOK {
		t.Fatalf("first delete = %d", code)
	}
	for i, xff := range []string{"203.0.113.2", "203.0.113.3", "198.51.100.7"} {
		if code := deleteFrom(srv, "2", xff); code != http.StatusTooManyRequests {
			t.Fatalf("request %d with X-Forwarded-For %s = %d, want 429", i, xff, code)
		}
	}
}

func TestRateLimitHonoursTrustedProxy(t *testing.T) {
	srv := newTestServer(t, Options{RateLimitPerMinute: 1, TrustedProxies: []string{"192.0.2.10"}})

	if code := deleteFrom(srv, "1", "203.0.113.1"); code != http.StatusOK {
		t.Fatalf("first client = %d", code)
	}
	if code := deleteFrom(srv, "2", "203.0.113.2"); code != http.StatusOK {
		t.Fatalf("second client behind the proxy = %d, want 200", code)
	}
	if code := deleteFrom(srv, "3", "203.0.113.1"); code != http.StatusTooManyRequests {
		t.Fatalf("first client again = %d, want 429", code)
	}
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, Options{})
	if rr := do(t, srv, http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/readyz", ""); rr.Code != http.StatusOK {
		t.Fatalf("readyz = %d", rr.Code)
	}

	down := newTestServer(t, Options{Ping: func(context.Context) error { return errors.New("db gone") }})
	rr := do(t, down, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable || !strings.Contains(rr.Body.String(), "db gone") {
		t.Fatalf("readyz = %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestResponsesCarryRequestID(t *testing.T) {
	srv := newTestServer(t, Options{})
	rr := do(t, srv, http.MethodGet, "/transactions", "")
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing X-Request-ID")
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	srv := NewServer(Options{Repository: memory.New()})
	ctx := context.Background()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("first shutdown: %v", err)
	}
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}
}
