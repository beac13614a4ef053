package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRecursiveGlob(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "hkr.bin"))
	touch(t, filepath.Join(dir, "cam0", "rtos.bin"))
	touch(t, filepath.Join(dir, "cam0", "deep", "dsp.bin"))
	touch(t, filepath.Join(dir, "cam0", "notes.txt"))

	w, err := New([]string{filepath.Join(dir, "**", "*.bin")}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	got := w.Paths()
	sort.Strings(got)
	want := []string{
		filepath.Join(dir, "cam0", "deep", "dsp.bin"),
		filepath.Join(dir, "cam0", "rtos.bin"),
		filepath.Join(dir, "hkr.bin"),
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d paths, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("path %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestNoMatches(t *testing.T) {
	w, err := New([]string{filepath.Join(t.TempDir(), "*.bin")}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if len(w.Paths()) != 0 {
		t.Errorf("expected no paths, got %v", w.Paths())
	}
}

func TestForwardsWrites(t *testing.T) {
	dump := filepath.Join(t.TempDir(), "fw.bin")
	touch(t, dump)

	w, err := New([]string{dump}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	if err := os.WriteFile(dump, make([]byte, 20), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-w.Events:
		if ev.Path != dump {
			t.Errorf("expected %s, got %s", dump, ev.Path)
		}
		if ev.Op&fsnotify.Write == 0 {
			t.Errorf("expected write event, got %v", ev.Op)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	cancel()
	select {
	case _, ok := <-drain(w.Events):
		if ok {
			t.Error("expected events channel closed after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

// drain discards pending events and reports the channel's close.
func drain(ch <-chan Event) <-chan Event {
	out := make(chan Event)
	go func() {
		for range ch {
		}
		close(out)
	}()
	return out
}
