package netbench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
)

const (
	DefaultURL = "https://proof.ovh.net/files/100Mb.dat"
	bufferSize = 8 * 1024
)

// Benchmark downloads a large file and discards it so the throughput
// sampler has traffic to measure. Only one download runs at a time.
type Benchmark struct {
	URL    string
	Client *http.Client

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(url string) *Benchmark {
	if url == "" {
		url = DefaultURL
	}
	return &Benchmark{URL: url, Client: http.DefaultClient}
}

// Start begins a download in the background. It returns false when one is
// already running. onDone, if set, receives nil on EOF or on Stop.
func (b *Benchmark) Start(ctx context.Context, onDone func(error)) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	b.cancel, b.done = cancel, done

	go func() {
		err := b.download(ctx)
		if errors.Is(err, context.Canceled) {
			err = nil
		}

		b.mu.Lock()
		if b.done == done {
			b.cancel, b.done = nil, nil
		}
		b.mu.Unlock()
		cancel()
		close(done)

		if onDone != nil {
			onDone(err)
		}
	}()
	return true
}

// Stop cancels a running download and waits for it to unwind.
func (b *Benchmark) Stop() {
	b.mu.Lock()
	cancel, done := b.cancel, b.done
	b.cancel, b.done = nil, nil
	b.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (b *Benchmark) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cancel != nil
}

func (b *Benchmark) download(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.URL, nil)
	if err != nil {
		return fmt.Errorf("benchmark request: %w", err)
	}
	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("benchmark download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("benchmark download: unexpected status %s", resp.Status)
	}

	buf := make([]byte, bufferSize)
	if _, err := io.CopyBuffer(io.Discard, readerOnly{resp.Body}, buf); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("benchmark read: %w", err)
	}
	return nil
}

// readerOnly hides WriterTo so CopyBuffer actually uses the buffer.
type readerOnly struct{ io.Reader }
