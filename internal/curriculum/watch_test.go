package curriculum_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/p-n-ai/pai-progress/internal/curriculum"
)

type reloadRecorder struct {
	calls chan struct{}
}

func (r *reloadRecorder) Reload(context.Context) (*curriculum.Model, error) {
	r.calls <- struct{}{}
	return &curriculum.Model{}, nil
}

func TestWatcher_DebouncedReload(t *testing.T) {
	dir := t.TempDir()
	rec := &reloadRecorder{calls: make(chan struct{}, 10)}

	w, err := curriculum.NewWatcher(dir, rec, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Ignored: not a content file.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	for i := range 3 {
		data := []byte(`{"curriculumData":{"areas":[]}}`)
		if err := os.WriteFile(filepath.Join(dir, "a.json"), append(data, byte('\n'+i)), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case <-rec.calls:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload after content change")
	}

	select {
	case <-rec.calls:
		t.Error("burst of writes should trigger a single reload")
	case <-time.After(300 * time.Millisecond):
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

func TestNewWatcher_MissingDir(t *testing.T) {
	if _, err := curriculum.NewWatcher(filepath.Join(t.TempDir(), "absent"), &reloadRecorder{}, 0); err == nil {
		t.Error("NewWatcher() should fail for a missing directory")
	}
}
