package auditmirror

import (
	"context"
	"fmt"
	"log"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Uploader interface {
	PutFile(ctx context.Context, key, local string) error
}

type Stats struct {
	Pending  int
	Uploaded int64
	Failed   int64
	Dropped  int64
	LastOK   int64
}

// Mirror uploads finished segments in the background. Keys are the path
// relative to dataDir under prefix/process.
type Mirror struct {
	up      Uploader
	dataDir string
	prefix  string
	log     *log.Logger

	jobs    chan string
	wait    time.Duration
	backoff time.Duration
	wg      sync.WaitGroup

	uploaded atomic.Int64
	failed   atomic.Int64
	dropped  atomic.Int64
	lastOK   atomic.Int64
}

type Options struct {
	DataDir string
	Prefix  string
	Process string
	Workers int
	Queue   int
	Logger  *log.Logger
}

func New(up Uploader, opts Options) *Mirror {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Queue <= 0 {
		opts.Queue = 256
	}
	prefix := strings.Trim(strings.ReplaceAll(opts.Prefix, "\\", "/"), "/")
	if opts.Process != "" {
		prefix = path.Join(prefix, opts.Process)
	}
	m := &Mirror{
		up:      up,
		dataDir: opts.DataDir,
		prefix:  prefix,
		log:     opts.Logger,
		jobs:    make(chan string, opts.Queue),
		wait:    25 * time.Millisecond,
		backoff: 200 * time.Millisecond,
	}
	for i := 0; i < opts.Workers; i++ {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			for p := range m.jobs {
				m.upload(p)
			}
		}()
	}
	return m
}

// Enqueue schedules local for upload. It waits briefly when the queue is
// full, then drops.
func (m *Mirror) Enqueue(local string) {
	if m == nil {
		return
	}
	select {
	case m.jobs <- local:
		return
	default:
	}
	t := time.NewTimer(m.wait)
	defer t.Stop()
	select {
	case m.jobs <- local:
	case <-t.C:
		m.dropped.Add(1)
		m.printf("drop %s: queue full", local)
	}
}

// Close uploads what is queued and stops the workers.
func (m *Mirror) Close() {
	if m == nil {
		return
	}
	close(m.jobs)
	m.wg.Wait()
}

func (m *Mirror) Stats() Stats {
	if m == nil {
		return Stats{}
	}
	return Stats{
		Pending:  len(m.jobs),
		Uploaded: m.uploaded.Load(),
		Failed:   m.failed.Load(),
		Dropped:  m.dropped.Load(),
		LastOK:   m.lastOK.Load(),
	}
}

func (m *Mirror) upload(local string) {
	key, err := m.key(local)
	if err != nil {
		m.failed.Add(1)
		m.printf("skip %s: %v", local, err)
		return
	}
	const attempts = 4
	for i := 1; i <= attempts; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		err = m.up.PutFile(ctx, key, local)
		cancel()
		if err == nil {
			m.uploaded.Add(1)
			m.lastOK.Store(time.Now().Unix())
			return
		}
		if i < attempts {
			time.Sleep(time.Duration(i*i) * m.backoff)
		}
	}
	m.failed.Add(1)
	m.printf("upload %s: %v", key, err)
}

func (m *Mirror) key(local string) (string, error) {
	base, err := filepath.Abs(m.dataDir)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(local)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("outside data dir %s", base)
	}
	return path.Join(m.prefix, rel), nil
}

func (m *Mirror) printf(format string, args ...any) {
	if m.log != nil {
		m.log.Printf(format, args...)
	}
}
