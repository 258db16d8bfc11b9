// Package trigger receives notifications that an external corrective action
// was performed.
//
// An external actor appends one JSON object per line to a file or FIFO, for
// example {"action":"terminate","pid":1234}. Blank lines are ignored.
package trigger

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"emperror.dev/errors"
	"github.com/containerd/fifo"
	"github.com/goccy/go-json"
	"github.com/nxadm/tail"
	log "github.com/sirupsen/logrus"

	"github.com/voluzi/taskpilot/pkg/types"
)

const ErrWatcherClosed = errors.Sentinel("action watcher closed")

type Watcher struct {
	tail   *tail.Tail
	Events chan *Event

	done     chan struct{}
	stopOnce sync.Once
}

// Event is either a decoded action or the error met while reading one.
type Event struct {
	Action *types.ActionEvent
	Err    error
}

// NewWatcher follows path for action lines written after it returns. When
// createFifo is set a named pipe is created at path first.
func NewWatcher(path string, createFifo bool) (*Watcher, error) {
	if createFifo {
		f, err := fifo.OpenFifo(context.Background(), path, syscall.O_CREAT|syscall.O_RDONLY|syscall.O_NONBLOCK, 0655)
		if err != nil {
			return nil, errors.WrapIfWithDetails(err, "creating fifo", "path", path)
		}
		if err := f.Close(); err != nil {
			return nil, err
		}
	}

	cfg := tail.Config{
		ReOpen: true,
		Follow: true,
		Logger: tail.DiscardingLogger,
	}
	// only lines appended from now on are actions; a regular file may still
	// hold events from earlier runs
	if info, err := os.Stat(path); err == nil {
		if info.Mode()&os.ModeNamedPipe != 0 {
			cfg.Pipe = true
		} else {
			cfg.Location = &tail.SeekInfo{Offset: info.Size(), Whence: io.SeekStart}
		}
	}

	t, err := tail.TailFile(path, cfg)
	if err != nil {
		return nil, errors.WrapIfWithDetails(err, "following action file", "path", path)
	}

	return &Watcher{
		tail:   t,
		Events: make(chan *Event),
		done:   make(chan struct{}),
	}, nil
}

func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() { close(w.done) })
	return w.tail.Stop()
}

// publish drops the event once the watcher is stopping, so that tail can
// always deliver its remaining lines.
func (w *Watcher) publish(ev *Event) {
	select {
	case w.Events <- ev:
	case <-w.done:
	}
}

// Start publishes events until the watcher is stopped, then closes Events.
func (w *Watcher) Start() {
	defer close(w.Events)
	for line := range w.tail.Lines {
		if line.Err != nil {
			w.publish(&Event{Err: line.Err})
			continue
		}

		text := strings.TrimSpace(line.Text)
		if text == "" {
			continue
		}
		action := types.ActionEvent{}
		if err := json.Unmarshal([]byte(text), &action); err != nil {
			w.publish(&Event{Err: errors.WrapIf(err, "decoding action")})
			continue
		}
		action.ReceivedAt = time.Now()
		w.publish(&Event{Action: &action})
	}
}

// Await watches path for the next action appended after the call, then
// stops watching.
func Await(ctx context.Context, path string, createFifo bool) (*types.ActionEvent, error) {
	w, err := NewWatcher(path, createFifo)
	if err != nil {
		return nil, err
	}
	go w.Start()
	defer func() {
		if err := w.Stop(); err != nil {
			log.Warnf("stopping action watcher: %v", err)
		}
	}()

	log.WithField("path", path).Info("waiting for action event")
	return w.Wait(ctx)
}

// Wait blocks until the next well-formed action arrives. Malformed lines
// are logged and skipped.
func (w *Watcher) Wait(ctx context.Context) (*types.ActionEvent, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil, ErrWatcherClosed
			}
			if ev.Err != nil {
				log.Warnf("ignoring action line: %v", ev.Err)
				continue
			}
			return ev.Action, nil
		}
	}
}
