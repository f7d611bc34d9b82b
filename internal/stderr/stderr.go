//go:build !windows

// Package stderr captures output that C audio libraries (ALSA through the
// speaker backend) write directly to file descriptor 2, and forwards it to
// the logger instead of interleaving it with structured log lines.
package stderr

import (
	"bufio"
	"io"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
)

var (
	mu         sync.Mutex
	origStderr = -1
	pipeRead   *os.File
	pipeWrite  *os.File
	done       chan struct{}
)

// Start redirects fd 2 into a pipe and logs each captured line at debug
// level through logger. Must be called before the audio library opens the
// device. Returns an error if capture cannot be set up; the program can
// continue without it.
func Start(logger zerolog.Logger) error {
	mu.Lock()
	defer mu.Unlock()
	if origStderr >= 0 {
		return nil
	}

	r, w, err := os.Pipe()
	if err != nil {
		return err
	}

	orig, err := syscall.Dup(int(os.Stderr.Fd()))
	if err != nil {
		r.Close()
		w.Close()
		return err
	}

	if err := syscall.Dup2(int(w.Fd()), int(os.Stderr.Fd())); err != nil {
		syscall.Close(orig)
		r.Close()
		w.Close()
		return err
	}

	origStderr = orig
	pipeRead = r
	pipeWrite = w
	done = make(chan struct{})

	go forward(r, logger, done)
	return nil
}

func forward(r io.Reader, logger zerolog.Logger, done chan<- struct{}) {
	defer close(done)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			logger.Debug().Str("source", "stderr").Msg(line)
		}
	}
}

// Original returns a writer to the original stderr, bypassing capture.
// Before Start it writes to os.Stderr. The logger itself must write here,
// or its output would be captured and logged again.
func Original() io.Writer {
	return originalWriter{}
}

type originalWriter struct{}

func (originalWriter) Write(p []byte) (int, error) {
	mu.Lock()
	fd := origStderr
	mu.Unlock()
	if fd < 0 {
		return os.Stderr.Write(p)
	}
	return syscall.Write(fd, p)
}

// Stop restores the original stderr. Should be called on program exit.
func Stop() {
	mu.Lock()
	if origStderr < 0 {
		mu.Unlock()
		return
	}
	_ = syscall.Dup2(origStderr, int(os.Stderr.Fd()))
	orig, r, w, finished := origStderr, pipeRead, pipeWrite, done
	origStderr = -1
	mu.Unlock()

	w.Close()
	<-finished
	r.Close()
	_ = syscall.Close(orig)
}
