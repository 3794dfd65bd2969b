//go:build linux

package buttons

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

type logger interface {
	Infof(string, string, ...interface{})
	Errorf(string, string, ...interface{})
}

// Evdev reads key presses from every /dev/input/event* device.
// It is best-effort: with no input devices it logs and delivers nothing.
type Evdev struct {
	Glob   string
	Logger logger

	ch      chan Event
	cancel  context.CancelFunc
	readers sync.WaitGroup
	once    sync.Once
}

func NewEvdev(l logger) *Evdev {
	return &Evdev{Glob: "/dev/input/event*", Logger: l, ch: make(chan Event, 8)}
}

func (e *Evdev) Events() <-chan Event { return e.ch }

func (e *Evdev) Start(ctx context.Context) error {
	paths, err := filepath.Glob(e.Glob)
	if err != nil || len(paths) == 0 {
		if e.Logger != nil {
			e.Logger.Infof("input", "no evdev devices found")
		}
		return nil
	}

	ctx, e.cancel = context.WithCancel(ctx)
	// input_event = timeval + u16 type + u16 code + s32 value.
	tvSize := binary.Size(unix.Timeval{})
	for _, path := range paths {
		e.readers.Add(1)
		go func() {
			defer e.readers.Done()
			e.read(ctx, path, tvSize)
		}()
	}
	if e.Logger != nil {
		e.Logger.Infof("input", "watching %d evdev devices", len(paths))
	}
	return nil
}

func (e *Evdev) read(ctx context.Context, path string, tvSize int) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return
	}
	f := os.NewFile(uintptr(fd), path)
	defer func() {
		_ = f.Close()
	}()

	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		pollFds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		if _, err := unix.Poll(pollFds, 250); err != nil {
			if err == unix.EINTR {
				continue
			}
			// Device might have gone away.
			return
		}
		if pollFds[0].Revents&unix.POLLIN == 0 {
			continue
		}

		n, err := unix.Read(fd, buf)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			return
		}
		for _, ev := range decodeEvents(buf[:n], tvSize) {
			select {
			case e.ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (e *Evdev) Stop() error {
	e.once.Do(func() {
		if e.cancel != nil {
			e.cancel()
		}
		e.readers.Wait()
		close(e.ch)
	})
	return nil
}
