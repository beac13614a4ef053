package tailer

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/atikulmunna/fwloom/internal/fwlogs"
	"github.com/atikulmunna/fwloom/internal/model"
	"github.com/atikulmunna/fwloom/internal/watcher"
)

const readBufferSize = 64 * fwlogs.RecordSize * 64

// Options tune how dumps are read.
type Options struct {
	// HeaderSize bytes are skipped at the start of every dump, e.g. the
	// 4-byte command-response envelope.
	HeaderSize int64
	// FromStart decodes existing content of dumps without a checkpoint
	// instead of starting at their end.
	FromStart bool
}

// Tailer reads records appended to watched dumps and emits them as
// record-aligned chunks. Bytes of a record still being written are held
// back until the rest arrives.
type Tailer struct {
	mu     sync.Mutex
	files  map[string]*trackedFile
	out    chan model.RawChunk
	ckpt   *Checkpoint
	events <-chan watcher.Event
	watch  *watcher.Watcher
	opts   Options
	logger *zap.Logger
}

type trackedFile struct {
	path    string
	file    *os.File
	offset  int64  // bytes consumed, including pending
	pending []byte // head of an incomplete record
	fresh   bool   // next chunk starts a new timestamp session
}

// New creates a Tailer fed by w.
func New(w *watcher.Watcher, ckpt *Checkpoint, opts Options, logger *zap.Logger) *Tailer {
	return &Tailer{
		files:  make(map[string]*trackedFile),
		out:    make(chan model.RawChunk, 512),
		ckpt:   ckpt,
		events: w.Events,
		watch:  w,
		opts:   opts,
		logger: logger,
	}
}

// Chunks returns the channel of record-aligned data.
func (t *Tailer) Chunks() <-chan model.RawChunk {
	return t.out
}

// Start processes watcher events until ctx is cancelled.
func (t *Tailer) Start(ctx context.Context) {
	defer close(t.out)

	for _, p := range t.watch.Paths() {
		t.openFile(p, false)
		if t.opts.FromStart {
			t.readNew(ctx, p)
		}
	}

	saveTicker := time.NewTicker(5 * time.Second)
	defer saveTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.saveCheckpoint()
			t.closeAll()
			return

		case ev, ok := <-t.events:
			if !ok {
				t.saveCheckpoint()
				t.closeAll()
				return
			}
			t.handleEvent(ctx, ev)

		case <-saveTicker.C:
			t.saveCheckpoint()
		}
	}
}

func (t *Tailer) handleEvent(ctx context.Context, ev watcher.Event) {
	switch {
	case ev.Op&fsnotify.Write != 0:
		t.readNew(ctx, ev.Path)

	case ev.Op&fsnotify.Create != 0:
		// The poller started a new dump: a new timestamp session.
		t.closeFile(ev.Path)
		t.ckpt.Forget(ev.Path)
		t.openFile(ev.Path, true)
		t.readNew(ctx, ev.Path)

	case ev.Op&fsnotify.Remove != 0, ev.Op&fsnotify.Rename != 0:
		t.closeFile(ev.Path)
		t.ckpt.Forget(ev.Path)
		go t.reconnect(ctx, ev.Path)
	}
}

// openFile starts tracking path. A recreated dump is read from its start.
func (t *Tailer) openFile(path string, recreated bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.files[path]; exists {
		return
	}

	f, err := os.Open(path)
	if err != nil {
		t.logger.Warn("cannot open dump", zap.String("path", path), zap.Error(err))
		return
	}

	var offset int64
	saved, haveSaved := t.ckpt.Get(path)
	switch {
	case recreated, !haveSaved && t.opts.FromStart:
		offset = 0
	case haveSaved:
		offset = saved
	default:
		end, _ := f.Seek(0, io.SeekEnd)
		offset = t.align(end)
	}
	if offset < t.opts.HeaderSize {
		offset = t.opts.HeaderSize
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		t.logger.Warn("cannot seek dump", zap.String("path", path), zap.Error(err))
		f.Close()
		return
	}

	t.files[path] = &trackedFile{
		path:   path,
		file:   f,
		offset: offset,
		fresh:  true,
	}
}

// align rounds an absolute offset down to a record boundary.
func (t *Tailer) align(off int64) int64 {
	if off <= t.opts.HeaderSize {
		return off
	}
	body := off - t.opts.HeaderSize
	return t.opts.HeaderSize + body - body%fwlogs.RecordSize
}

// readNew reads from the last offset to EOF and emits whole records.
func (t *Tailer) readNew(ctx context.Context, path string) {
	t.mu.Lock()
	tf, ok := t.files[path]
	t.mu.Unlock()
	if !ok {
		return
	}

	if info, err := tf.file.Stat(); err == nil && info.Size() < tf.offset {
		// Truncated in place: start over as a new session.
		t.logger.Info("dump truncated, restarting session", zap.String("path", path))
		tf.pending = nil
		tf.fresh = true
		tf.offset, _ = tf.file.Seek(t.opts.HeaderSize, io.SeekStart)
	}

	buf := make([]byte, readBufferSize)
	for {
		n, err := tf.file.Read(buf)
		if n > 0 {
			tf.offset += int64(n)
			data := append(tf.pending, buf[:n]...)
			whole := fwlogs.NumRecords(len(data)) * fwlogs.RecordSize
			tf.pending = append([]byte(nil), data[whole:]...)

			if whole > 0 {
				chunk := model.RawChunk{Data: data[:whole], Source: path, Reset: tf.fresh}
				tf.fresh = false
				select {
				case t.out <- chunk:
				case <-ctx.Done():
					return
				}
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.logger.Error("read error", zap.String("path", path), zap.Error(err))
			break
		}
	}

	t.ckpt.Set(path, tf.offset-int64(len(tf.pending)))
}

func (t *Tailer) closeFile(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if tf, ok := t.files[path]; ok {
		tf.file.Close()
		delete(t.files, path)
	}
}

// reconnect polls for a rotated dump to reappear (up to 5 retries).
func (t *Tailer) reconnect(ctx context.Context, path string) {
	for i := 0; i < 5; i++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
		if _, err := os.Stat(path); err == nil {
			t.logger.Info("reconnected to rotated dump", zap.String("path", path))
			_ = t.watch.ReWatch(path)
			t.openFile(path, true)
			return
		}
	}
	t.logger.Warn("gave up reconnecting", zap.String("path", path), zap.Int("retries", 5))
}

func (t *Tailer) saveCheckpoint() {
	if err := t.ckpt.Save(); err != nil {
		t.logger.Error("checkpoint save failed", zap.Error(err))
	}
}

func (t *Tailer) closeAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for path, tf := range t.files {
		tf.file.Close()
		delete(t.files, path)
	}
}
