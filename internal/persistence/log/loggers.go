package log

import (
	"path/filepath"
	"time"

	"voxelrtp.ai/internal/search"
	"voxelrtp.ai/internal/world"
)

// SearchEntry is one exhausted search.
type SearchEntry struct {
	Time        time.Time      `json:"time"`
	World       string         `json:"world"`
	Requester   string         `json:"requester,omitempty"`
	Attempts    int            `json:"attempts"`
	MinRadius   int            `json:"min_radius"`
	MaxRadius   int            `json:"max_radius"`
	Failures    map[string]int `json:"failures"`
	ChunkMisses int            `json:"chunk_misses,omitempty"`
}

// SearchLogger keeps the failure histograms of exhausted searches.
type SearchLogger struct {
	w   *JSONLZstdWriter
	Err func(error)
}

func NewSearchLogger(dataDir string) *SearchLogger {
	return NewSearchLoggerWithOptions(dataDir, WriterOptions{})
}

func NewSearchLoggerWithOptions(dataDir string, opts WriterOptions) *SearchLogger {
	return &SearchLogger{w: NewJSONLZstdWriterWithOptions(filepath.Join(dataDir, "audit"), "search", opts)}
}

func (l *SearchLogger) SearchExhausted(e search.Exhausted) {
	failures := map[string]int{}
	for r, n := range e.Summary.Counts {
		failures[r.String()] = n
	}
	err := l.w.Write(SearchEntry{
		Time:        e.At,
		World:       e.World,
		Requester:   e.Requester,
		Attempts:    e.Attempts,
		MinRadius:   e.MinRadius,
		MaxRadius:   e.MaxRadius,
		Failures:    failures,
		ChunkMisses: e.Summary.ChunkMisses,
	})
	if err != nil && l.Err != nil {
		l.Err(err)
	}
}

func (l *SearchLogger) Close() error { return l.w.Close() }

// TeleportEntry records a teleport or handoff outcome.
type TeleportEntry struct {
	Time     time.Time         `json:"time"`
	Kind     string            `json:"kind"`
	Identity string            `json:"identity"`
	World    string            `json:"world,omitempty"`
	Location *world.Coordinate `json:"location,omitempty"`
	Code     string            `json:"code,omitempty"`
	Cached   bool              `json:"cached,omitempty"`
	Process  string            `json:"process,omitempty"`
}

type TeleportLogger struct{ w *JSONLZstdWriter }

func NewTeleportLogger(dataDir string) *TeleportLogger {
	return NewTeleportLoggerWithOptions(dataDir, WriterOptions{})
}

func NewTeleportLoggerWithOptions(dataDir string, opts WriterOptions) *TeleportLogger {
	return &TeleportLogger{w: NewJSONLZstdWriterWithOptions(filepath.Join(dataDir, "audit"), "teleports", opts)}
}

func (l *TeleportLogger) Write(e TeleportEntry) error {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	return l.w.Write(e)
}

func (l *TeleportLogger) Close() error { return l.w.Close() }
