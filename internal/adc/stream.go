package adc

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// StreamSampler keeps the latest sample from a line-oriented stream, one
// decimal reading per line. A background goroutine reads the stream; Read
// never blocks.
type StreamSampler struct {
	src         io.ReadCloser
	now         func() time.Time
	staleAfter  time.Duration
	readTimeout time.Duration
	logger      *slog.Logger

	latest  atomic.Int64
	lastAt  atomic.Int64 // unix nanoseconds; 0 until the first sample
	invalid atomic.Uint64

	mu      sync.Mutex
	readErr error

	done     chan struct{}
	closeErr error
	once     sync.Once
}

// maxLine bounds a sample line; longer runs without a newline are noise.
const maxLine = 32

// maxFastEOF is how many empty reads in a row, each returning well before
// the read timeout, mark a hung-up device.
const maxFastEOF = 3

// NewStreamSampler starts reading src. Readings outside 0..MaxValue are
// dropped. A staleAfter of zero disables the staleness check.
func NewStreamSampler(src io.ReadCloser, staleAfter time.Duration, now func() time.Time, logger *slog.Logger) *StreamSampler {
	return newStreamSampler(src, staleAfter, 0, now, logger)
}

// newStreamSampler is NewStreamSampler for a source with a read timeout,
// which reports a quiet interval as (0, io.EOF).
func newStreamSampler(src io.ReadCloser, staleAfter, readTimeout time.Duration, now func() time.Time, logger *slog.Logger) *StreamSampler {
	s := &StreamSampler{
		src:         src,
		now:         now,
		staleAfter:  staleAfter,
		readTimeout: readTimeout,
		logger:      logger,
		done:        make(chan struct{}),
	}
	go s.readLoop()
	return s
}

func (s *StreamSampler) readLoop() {
	defer close(s.done)

	buf := make([]byte, 256)
	var line []byte
	fastEOF := 0
	for {
		start := s.now()
		n, err := s.src.Read(buf)
		for _, b := range buf[:n] {
			if b != '\n' {
				if len(line) < maxLine {
					line = append(line, b)
				}
				continue
			}
			s.accept(line)
			line = line[:0]
		}
		if n == 0 && err == io.EOF && s.readTimeout > 0 {
			if s.now().Sub(start) < s.readTimeout/2 {
				fastEOF++
			} else {
				fastEOF = 0
			}
			if fastEOF < maxFastEOF {
				continue
			}
		} else if n > 0 {
			fastEOF = 0
		}
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			s.mu.Lock()
			s.readErr = fmt.Errorf("read sample stream: %w", err)
			s.mu.Unlock()
			return
		}
	}
}

func (s *StreamSampler) accept(line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}
	v, err := strconv.Atoi(string(line))
	if err != nil || v < 0 || v > MaxValue {
		if s.invalid.Add(1) == 1 {
			s.logger.Warn("adc: dropping invalid sample line", "line", string(line))
		}
		return
	}
	s.latest.Store(int64(v))
	s.lastAt.Store(s.now().UnixNano())
}

// Read returns the latest sample.
func (s *StreamSampler) Read() (int, error) {
	s.mu.Lock()
	err := s.readErr
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	at := s.lastAt.Load()
	if at == 0 {
		return 0, ErrNoSample
	}
	if s.staleAfter > 0 && s.now().Sub(time.Unix(0, at)) > s.staleAfter {
		return 0, ErrStale
	}
	return int(s.latest.Load()), nil
}

// Invalid returns the number of dropped lines.
func (s *StreamSampler) Invalid() uint64 {
	return s.invalid.Load()
}

// Close closes the stream.
func (s *StreamSampler) Close() error {
	s.once.Do(func() {
		s.closeErr = s.src.Close()
	})
	return s.closeErr
}
