package download

import (
	"context"
	"errors"
	"io"
	"iter"
	"strings"
	"sync"

	"github.com/handiism/sdss-fetch/internal/http"
	"github.com/handiism/sdss-fetch/internal/model"
)

const payload = "SIMPLE  =                    T"

// fakeTransport answers each URL with the status chosen by route.
// A route returning 200 serves payload.
type fakeTransport struct {
	mu    sync.Mutex
	calls []string
	route func(url string, call int) int
}

func (f *fakeTransport) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	n := 0
	for _, c := range f.calls {
		if c == url {
			n++
		}
	}
	f.mu.Unlock()

	code := f.route(url, n)
	if code != 200 {
		return nil, &http.StatusError{Code: code, Status: "Not Found", URL: url}
	}
	return io.NopCloser(strings.NewReader(payload)), nil
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func always(code int) func(string, int) int {
	return func(string, int) int { return code }
}

// brokenTransport sends a few bytes and then fails mid-stream.
type brokenTransport struct{}

func (brokenTransport) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	return io.NopCloser(io.MultiReader(strings.NewReader("SIMP"), errReader{})), nil
}

// sizedTransport announces size bytes but serves payload.
type sizedTransport struct{ size int64 }

func (s sizedTransport) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	return sizedBody{ReadCloser: io.NopCloser(strings.NewReader(payload)), size: s.size}, nil
}

type sizedBody struct {
	io.ReadCloser
	size int64
}

func (b sizedBody) Size() int64 { return b.size }

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("connection reset by peer") }

// memoryRecorder captures audit output.
type memoryRecorder struct {
	mu     sync.Mutex
	lines  []string
	failed []model.Target
}

func (r *memoryRecorder) Record(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, msg)
}

func (r *memoryRecorder) RecordFailed(t model.Target) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, t)
}

func (r *memoryRecorder) contains(prefix string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, l := range r.lines {
		if strings.HasPrefix(l, prefix) {
			n++
		}
	}
	return n
}

// listStrategy yields a fixed candidate list and counts how many were
// pulled.
type listStrategy struct {
	candidates []model.Candidate
	pulled     int
}

func (s *listStrategy) Candidates(model.Target) iter.Seq[model.Candidate] {
	return func(yield func(model.Candidate) bool) {
		for _, c := range s.candidates {
			s.pulled++
			if !yield(c) {
				return
			}
		}
	}
}

func candidates(urls ...string) []model.Candidate {
	out := make([]model.Candidate, len(urls))
	for i, u := range urls {
		out[i] = model.Candidate{URL: u, MethodTag: "tier-" + string(rune('a'+i))}
	}
	return out
}

var target = model.Target{Plate: 751, MJD: 52251, Fiber: 160}
