package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"dtmoney/internal/core"
	apihttp "dtmoney/internal/http"
	"dtmoney/internal/storage/memory"
)

type harness struct {
	app    *App
	repo   *memory.Store
	out    *bytes.Buffer
	errOut *bytes.Buffer
}

func newHarness(t *testing.T, seed ...core.Transaction) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := memory.New(seed...)
	api := apihttp.NewServer(apihttp.Options{Repository: repo})
	ts := httptest.NewServer(api.Handler)
	t.Cleanup(func() {
		ts.Close()
		api.Shutdown(context.Background())
	})

	h := &harness{repo: repo, out: &bytes.Buffer{}, errOut: &bytes.Buffer{}}
	app, err := NewApp(AppConfig{
		APIURL:  ts.URL,
		Timeout: 5 * time.Second,
		Clock:   func() time.Time { return time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC) },
	}, h.out, h.errOut, nil)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	h.app = app
	return h
}

func seedTransactions() []core.Transaction {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return []core.Transaction{
		{ID: 1, Description: "Salary", Type: core.Income, Price: 12000, Category: "Work", CreatedAt: base},
		{ID: 2, Description: "Coffee", Type: core.Outcome, Price: 8.5, Category: "Food", CreatedAt: base.Add(time.Hour)},
	}
}

func TestRunList(t *testing.T) {
	h := newHarness(t, seedTransactions()...)

	if code := h.app.Run(context.Background(), []string{"list"}); code != ExitOK {
		t.Fatalf("exit = %d stderr=%s", code, h.errOut.String())
	}
	out := h.out.String()
	for _, want := range []string{"Salary", "R$ 12.000,00", "Coffee", "- R$ 8,50"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	h.out.Reset()
	if code := h.app.Run(context.Background(), []string{"list", "-q", "coffee", "-markdown"}); code != ExitOK {
		t.Fatalf("exit = %d", code)
	}
	if out := h.out.String(); strings.Contains(out, "Salary") || !strings.Contains(out, "Coffee") {
		t.Fatalf("filtered output wrong:\n%s", out)
	}
}

func TestRunSummary(t *testing.T) {
	h := newHarness(t, seedTransactions()...)

	if code := h.app.Run(context.Background(), []string{"summary"}); code != ExitOK {
		t.Fatalf("exit = %d stderr=%s", code, h.errOut.String())
	}
	if out := h.out.String(); !strings.Contains(out, "R$ 11.991,50") {
		t.Fatalf("summary missing total:\n%s", out)
	}
}

func TestRunCreateAndDelete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	code := h.app.Run(ctx, []string{"create", "-description", "Lunch", "-price", "25", "-category", "Food", "-type", "outcome"})
	if code != ExitOK {
		t.Fatalf("create exit = %d stderr=%s", code, h.errOut.String())
	}
	if !strings.Contains(h.out.String(), "created transaction 1") {
		t.Fatalf("unexpected output %q", h.out.String())
	}
	if h.repo.Len() != 1 {
		t.Fatalf("repository has %d records", h.repo.Len())
	}

	if code := h.app.Run(ctx, []string{"delete", "-id", "1"}); code != ExitOK {
		t.Fatalf("delete exit = %d stderr=%s", code, h.errOut.String())
	}
	if code := h.app.Run(ctx, []string{"delete", "-id", "1"}); code != ExitError {
		t.Fatalf("second delete exit = %d, want %d", code, ExitError)
	}
	if !strings.Contains(h.errOut.String(), "transaction not found") {
		t.Fatalf("stderr = %q", h.errOut.String())
	}
}

func TestRunUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no command", args: nil},
		{name: "unknown command", args: []string{"export"}},
		{name: "bad type", args: []string{"create", "-description", "x", "-price", "1", "-type", "transfer"}},
		{name: "bad price", args: []string{"create", "-description", "x", "-price", "abc", "-type", "income"}},
		{name: "missing id", args: []string{"delete"}},
		{name: "unknown flag", args: []string{"list", "-sort", "price"}},
		{name: "stray argument", args: []string{"summary", "now"}},
	}

	h := newHarness(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := h.app.Run(context.Background(), tt.args); code != ExitUsage {
				t.Fatalf("exit = %d, want %d", code, ExitUsage)
			}
		})
	}
	if h.repo.Len() != 0 {
		t.Fatal("usage errors must not reach the API")
	}
}

func TestRunNetworkFailure(t *testing.T) {
	ts := httptest.NewServer(nil)
	url := ts.URL
	ts.Close()

	var out, errOut bytes.Buffer
	app, err := NewApp(AppConfig{APIURL: url, Timeout: time.Second}, &out, &errOut, nil)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	if code := app.Run(context.Background(), []string{"list"}); code != ExitError {
		t.Fatalf("exit = %d, want %d", code, ExitError)
	}
	if !strings.Contains(errOut.String(), "cannot reach") {
		t.Fatalf("stderr = %q", errOut.String())
	}
}

func TestRunWatchRendersUntilCancelled(t *testing.T) {
	h := newHarness(t, seedTransactions()...)
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	if code := h.app.Run(ctx, []string{"watch", "-interval", "20ms"}); code != ExitOK {
		t.Fatalf("exit = %d stderr=%s", code, h.errOut.String())
	}
	if n := strings.Count(h.out.String(), "Salary"); n < 2 {
		t.Fatalf("expected repeated renders, got %d:\n%s", n, h.out.String())
	}
}
