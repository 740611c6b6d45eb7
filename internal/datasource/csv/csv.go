// Package csv streams OHLCV bars from one CSV file per symbol into a single
// globally timestamp-ordered iterator, the shape the backtest loop's
// BarSource expects.
package csv

import (
	"container/heap"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/rxtech-lab/backtestcore/internal/types"
	"github.com/rxtech-lab/backtestcore/pkg/errors"
)

// Source k-way merges one CSV file per symbol by timestamp. Each file is
// expected to be sorted ascending by timestamp and to carry a single symbol
// throughout, mirroring how OHLCV data is typically exported per instrument.
type Source struct {
	paths        []string
	baseInterval types.Interval
}

// NewSource creates a Source over paths, one file per symbol. Rows whose
// interval column is blank are stamped with baseInterval, since most
// per-symbol OHLCV exports omit it entirely.
func NewSource(paths []string, baseInterval types.Interval) *Source {
	return &Source{paths: paths, baseInterval: baseInterval}
}

// Bars returns a BarSource-shaped iterator: a range-over-func that yields
// every row across every configured file in non-decreasing timestamp order,
// breaking ties lexicographically by symbol. A row-level or file-level error
// is yielded once and stops the iteration.
func (s *Source) Bars() func(yield func(types.Bar, error) bool) {
	return func(yield func(types.Bar, error) bool) {
		streams := make([]*fileStream, 0, len(s.paths))

		defer func() {
			for _, st := range streams {
				st.close()
			}
		}()

		for _, path := range s.paths {
			st, err := newFileStream(path, s.baseInterval)
			if err != nil {
				yield(types.Bar{}, err)

				return
			}

			if st.advance() {
				streams = append(streams, st)
			} else if st.err != nil {
				yield(types.Bar{}, st.err)

				return
			}
		}

		h := &streamHeap{streams: streams}
		heap.Init(h)

		for h.Len() > 0 {
			st := h.streams[0]
			bar := st.current

			if !yield(bar, nil) {
				return
			}

			if st.advance() {
				heap.Fix(h, 0)

				continue
			}

			heap.Pop(h)

			if st.err != nil {
				yield(types.Bar{}, st.err)

				return
			}
		}
	}
}

// fileStream wraps a single CSV file's channel-based unmarshal so its rows
// can participate in the k-way merge one at a time.
type fileStream struct {
	file    *os.File
	ch      chan types.Bar
	errCh   chan error
	current types.Bar
	err     error
	base    types.Interval
}

func newFileStream(path string, base types.Interval) (*fileStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeNoDataFound, err, "failed to open bar file %s", path)
	}

	ch := make(chan types.Bar)
	errCh := make(chan error, 1)

	go func() {
		errCh <- gocsv.UnmarshalToChan(f, ch)
	}()

	return &fileStream{file: f, ch: ch, errCh: errCh, base: base}, nil
}

// advance pulls the next row into current, returning false once the file is
// exhausted; a non-nil err afterward means it exhausted because of a parse
// failure rather than reaching the end of the file cleanly.
func (fs *fileStream) advance() bool {
	bar, ok := <-fs.ch
	if !ok {
		if err := <-fs.errCh; err != nil {
			fs.err = errors.Wrap(errors.ErrCodeInvalidBar, "failed to parse bar row", err)
		}

		return false
	}

	if bar.Interval == "" {
		bar.Interval = fs.base
	}

	fs.current = bar

	return true
}

func (fs *fileStream) close() {
	if fs.file != nil {
		fs.file.Close()
	}
}

// streamHeap is a container/heap.Interface min-heap over fileStreams ordered
// by their current row's timestamp, then symbol.
type streamHeap struct {
	streams []*fileStream
}

func (h *streamHeap) Len() int { return len(h.streams) }

func (h *streamHeap) Less(i, j int) bool {
	a, b := h.streams[i].current, h.streams[j].current

	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}

	return a.Symbol < b.Symbol
}

func (h *streamHeap) Swap(i, j int) { h.streams[i], h.streams[j] = h.streams[j], h.streams[i] }

func (h *streamHeap) Push(x any) { h.streams = append(h.streams, x.(*fileStream)) }

func (h *streamHeap) Pop() any {
	old := h.streams
	n := len(old)
	item := old[n-1]
	h.streams = old[:n-1]

	return item
}
