package dev

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mnplowfinder/plowfinder/internal/errors"
	"github.com/mnplowfinder/plowfinder/internal/registry"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within 2s")
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub(quietLogger())
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + ReloadPath
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	hub.NotifyError("E101: Provider data is malformed")
	hub.NotifyReload()

	want := []ReloadMessage{
		{Type: ReloadTypeError, Error: "E101: Provider data is malformed"},
		{Type: ReloadTypeFull},
	}
	for _, w := range want {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var got ReloadMessage
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if got != w {
			t.Errorf("message = %+v, want %+v", got, w)
		}
	}

	conn.Close()
	waitFor(t, func() bool { return hub.ClientCount() == 0 })
}

func TestInjectClient(t *testing.T) {
	doc := []byte("<html><body><div id=\"root\"></div></BODY></html>")
	out := string(InjectClient(doc))

	if !strings.Contains(out, ReloadPath) {
		t.Error("script missing reload path")
	}
	if i, j := strings.Index(out, "<script>"), strings.Index(out, "</BODY>"); i < 0 || i > j {
		t.Errorf("script not inserted before </body>:\n%s", out)
	}
	if string(doc) != "<html><body><div id=\"root\"></div></BODY></html>" {
		t.Error("input was modified")
	}

	bare := string(InjectClient([]byte("<p>hi</p>")))
	if !strings.HasPrefix(bare, "<p>hi</p><script>") {
		t.Errorf("script not appended to bare document: %q", bare[:20])
	}
}

func TestWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "providers.json")
	if err := os.WriteFile(path, []byte("[]"), 0644); err != nil {
		t.Fatal(err)
	}

	changes := make(chan string, 10)
	w, err := NewWatcher(path, func(p string) { changes <- p },
		WithDebounce(50*time.Millisecond), WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte(fmt.Sprintf("[] // %d", i)), 0644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case got := <-changes:
		if got != w.Path() {
			t.Errorf("onChange path = %q, want %q", got, w.Path())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported")
	}

	select {
	case <-changes:
		t.Error("burst of writes reported more than once")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_IgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "providers.json")
	if err := os.WriteFile(path, []byte("[]"), 0644); err != nil {
		t.Fatal(err)
	}

	changes := make(chan string, 1)
	w, err := NewWatcher(path, func(p string) { changes <- p },
		WithDebounce(20*time.Millisecond), WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changes:
		t.Error("change to a sibling file was reported")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestReloader(t *testing.T) {
	good, err := registry.New(registry.DefaultCities(), []registry.Provider{{ID: 1, Name: "Plow Co"}})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("success applies the new registry", func(t *testing.T) {
		var applied *registry.Registry
		exported := false
		r := NewReloader(ReloaderConfig{
			Load:   func() (*registry.Registry, error) { return good, nil },
			Export: func(context.Context, *registry.Registry) error { exported = true; return nil },
			Apply:  func(reg *registry.Registry) error { applied = reg; return nil },
			Logger: quietLogger(),
		})

		if err := r.Reload(context.Background()); err != nil {
			t.Fatalf("Reload error: %v", err)
		}
		if !exported || applied != good {
			t.Errorf("exported=%v applied=%p, want export and apply", exported, applied)
		}
	})

	t.Run("load failure keeps the previous registry", func(t *testing.T) {
		applied := false
		r := NewReloader(ReloaderConfig{
			Load:   func() (*registry.Registry, error) { return nil, errors.New("E101") },
			Apply:  func(*registry.Registry) error { applied = true; return nil },
			Logger: quietLogger(),
		})

		if err := r.Reload(context.Background()); !errors.HasCode(err, "E101") {
			t.Fatalf("Reload error = %v, want E101", err)
		}
		if applied {
			t.Error("Apply called after a failed load")
		}
	})

	t.Run("export failure keeps the previous registry", func(t *testing.T) {
		applied := false
		r := NewReloader(ReloaderConfig{
			Load:   func() (*registry.Registry, error) { return good, nil },
			Export: func(context.Context, *registry.Registry) error { return errors.New("E130") },
			Apply:  func(*registry.Registry) error { applied = true; return nil },
			Logger: quietLogger(),
		})

		if err := r.Reload(context.Background()); !errors.HasCode(err, "E130") {
			t.Fatalf("Reload error = %v, want E130", err)
		}
		if applied {
			t.Error("Apply called after a failed export")
		}
	})
}

func TestMessage(t *testing.T) {
	got := message(errors.New("E101").WithLocation("data/providers.json", 3, 7))
	if !strings.HasPrefix(got, "data/providers.json:3:7: E101: Provider data is malformed") {
		t.Errorf("message = %q", got)
	}
	if got := message(fmt.Errorf("plain")); got != "plain" {
		t.Errorf("message = %q, want plain", got)
	}
}
