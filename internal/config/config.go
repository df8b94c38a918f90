// Package config loads the RTP YAML configuration. Load never fails on a bad
// entry: unknown names and malformed numbers are reported as warnings, the
// entry is skipped, and a default takes its place.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ProcessID string            `yaml:"process_id"`
	Listen    string            `yaml:"listen"`
	DataDir   string            `yaml:"data_dir"`
	Search    SearchSpec        `yaml:"search"`
	Worlds    []WorldSpec       `yaml:"worlds"`
	Queue     QueueSpec         `yaml:"queue"`
	Cache     CacheSpec         `yaml:"cache"`
	Handoff   HandoffSpec       `yaml:"handoff"`
	Peers     map[string]string `yaml:"peers,omitempty"`
	Claims    []ClaimSpec       `yaml:"claims,omitempty"`
}

type SearchSpec struct {
	Attempts          int       `yaml:"attempts"`
	MinRadius         int       `yaml:"min_radius"`
	MaxRadius         int       `yaml:"max_radius"`
	BlacklistedBlocks []string  `yaml:"blacklisted_blocks"`
	Biomes            BiomeSpec `yaml:"biomes"`
	RespectRegions    bool      `yaml:"respect_regions"`
}

type BiomeSpec struct {
	Mode string   `yaml:"mode"`
	List []string `yaml:"list"`
}

type WorldSpec struct {
	Name           string      `yaml:"name"`
	Type           string      `yaml:"type"`
	Seed           int64       `yaml:"seed"`
	Border         BorderSpec  `yaml:"border"`
	Center         *CenterSpec `yaml:"center,omitempty"`
	MinRadius      int         `yaml:"min_radius"`
	MaxRadius      int         `yaml:"max_radius"`
	GenerateChunks *bool       `yaml:"generate_chunks,omitempty"`
	PregenRadius   int         `yaml:"pregen_radius"`
}

type BorderSpec struct {
	CenterX float64 `yaml:"center_x"`
	CenterZ float64 `yaml:"center_z"`
	Size    float64 `yaml:"size"`
}

type CenterSpec struct {
	X int `yaml:"x"`
	Z int `yaml:"z"`
}

type QueueSpec struct {
	Enabled    bool `yaml:"enabled"`
	IntervalMS int  `yaml:"interval_ms"`
	BatchSize  int  `yaml:"batch_size"`
}

type CacheSpec struct {
	Enabled  bool `yaml:"enabled"`
	PerWorld int  `yaml:"per_world"`
}

type HandoffSpec struct {
	Backend        string `yaml:"backend"`
	SQLitePath     string `yaml:"sqlite_path"`
	PostgresDSN    string `yaml:"postgres_dsn"`
	RedisAddr      string `yaml:"redis_addr"`
	RedisDB        int    `yaml:"redis_db"`
	TTLSeconds     int    `yaml:"ttl_seconds"`
	SweepSeconds   int    `yaml:"sweep_seconds"`
	GroupSpreadMin int    `yaml:"group_spread_min"`
	GroupSpreadMax int    `yaml:"group_spread_max"`
}

type ClaimSpec struct {
	World string `yaml:"world"`
	Owner string `yaml:"owner"`
	MinX  int    `yaml:"min_x"`
	MinZ  int    `yaml:"min_z"`
	MaxX  int    `yaml:"max_x"`
	MaxZ  int    `yaml:"max_z"`
}

// Load reads path over the defaults. An empty path yields the defaults.
// Warnings describe entries that were skipped or replaced.
func Load(path string) (Config, []string, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) == "" {
		warns := cfg.Normalize()
		return cfg, warns, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, nil, err
	}
	// Worlds replace the default list wholesale when present.
	cfg.Worlds = nil
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, nil, fmt.Errorf("rtp.yaml: %w", err)
	}
	if len(cfg.Worlds) == 0 {
		cfg.Worlds = Defaults().Worlds
	}
	warns := cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, warns, fmt.Errorf("rtp.yaml: %w", err)
	}
	return cfg, warns, nil
}

func Defaults() Config {
	return Config{
		ProcessID: "rtp-1",
		Listen:    ":8080",
		DataDir:   "./data",
		Search: SearchSpec{
			Attempts:          32,
			MinRadius:         64,
			MaxRadius:         2000,
			BlacklistedBlocks: []string{"LAVA", "MAGMA_BLOCK", "CACTUS", "WATER"},
			Biomes:            BiomeSpec{Mode: "BLACKLIST", List: []string{"OCEAN", "DEEP_OCEAN"}},
			RespectRegions:    true,
		},
		Worlds: []WorldSpec{
			{Name: "world", Type: "NORMAL", Seed: 1337, Border: BorderSpec{Size: 10000}, PregenRadius: 16},
			{Name: "world_nether", Type: "NETHER", Seed: 1337, Border: BorderSpec{Size: 4000}, MaxRadius: 1000, PregenRadius: 8},
			{Name: "world_the_end", Type: "END", Seed: 1337, Border: BorderSpec{Size: 2000}, MinRadius: 0, MaxRadius: 150, PregenRadius: 12},
		},
		Queue: QueueSpec{Enabled: true, IntervalMS: 1000, BatchSize: 2},
		Cache: CacheSpec{Enabled: false, PerWorld: 4},
		Handoff: HandoffSpec{
			Backend:        "sqlite",
			TTLSeconds:     300,
			SweepSeconds:   60,
			GroupSpreadMin: 2,
			GroupSpreadMax: 8,
		},
	}
}

// Normalize substitutes defaults for malformed numeric fields and returns a
// warning for each substitution.
func (c *Config) Normalize() []string {
	if c == nil {
		return nil
	}
	d := Defaults()
	var warns []string
	fix := func(v *int, def int, ok bool, name string) {
		if ok {
			return
		}
		warns = append(warns, fmt.Sprintf("%s=%d is invalid; using %d", name, *v, def))
		*v = def
	}
	if strings.TrimSpace(c.ProcessID) == "" {
		c.ProcessID = d.ProcessID
	}
	if strings.TrimSpace(c.Listen) == "" {
		c.Listen = d.Listen
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = d.DataDir
	}
	fix(&c.Search.Attempts, d.Search.Attempts, c.Search.Attempts > 0, "search.attempts")
	fix(&c.Search.MinRadius, d.Search.MinRadius, c.Search.MinRadius >= 0, "search.min_radius")
	fix(&c.Search.MaxRadius, d.Search.MaxRadius, c.Search.MaxRadius > 0, "search.max_radius")
	fix(&c.Queue.IntervalMS, d.Queue.IntervalMS, c.Queue.IntervalMS > 0, "queue.interval_ms")
	fix(&c.Queue.BatchSize, d.Queue.BatchSize, c.Queue.BatchSize > 0, "queue.batch_size")
	fix(&c.Cache.PerWorld, d.Cache.PerWorld, c.Cache.PerWorld >= 0, "cache.per_world")
	fix(&c.Handoff.TTLSeconds, d.Handoff.TTLSeconds, c.Handoff.TTLSeconds > 0, "handoff.ttl_seconds")
	fix(&c.Handoff.SweepSeconds, d.Handoff.SweepSeconds, c.Handoff.SweepSeconds > 0, "handoff.sweep_seconds")
	fix(&c.Handoff.GroupSpreadMin, d.Handoff.GroupSpreadMin, c.Handoff.GroupSpreadMin >= 0, "handoff.group_spread_min")
	fix(&c.Handoff.GroupSpreadMax, d.Handoff.GroupSpreadMax, c.Handoff.GroupSpreadMax > 0, "handoff.group_spread_max")
	if c.Handoff.GroupSpreadMin > c.Handoff.GroupSpreadMax {
		c.Handoff.GroupSpreadMin, c.Handoff.GroupSpreadMax = c.Handoff.GroupSpreadMax, c.Handoff.GroupSpreadMin
	}
	if strings.TrimSpace(c.Handoff.Backend) == "" {
		c.Handoff.Backend = d.Handoff.Backend
	}
	c.Handoff.Backend = strings.ToLower(strings.TrimSpace(c.Handoff.Backend))

	for i := range c.Worlds {
		w := &c.Worlds[i]
		name := w.Name
		if w.Border.Size <= 0 {
			warns = append(warns, fmt.Sprintf("world %s border.size=%v is invalid; using 60000", name, w.Border.Size))
			w.Border.Size = 60000
		}
		if w.MinRadius < 0 {
			warns = append(warns, fmt.Sprintf("world %s min_radius=%d is invalid; using global default", name, w.MinRadius))
			w.MinRadius = 0
		}
		if w.MaxRadius < 0 {
			warns = append(warns, fmt.Sprintf("world %s max_radius=%d is invalid; using global default", name, w.MaxRadius))
			w.MaxRadius = 0
		}
		if w.PregenRadius < 0 {
			w.PregenRadius = 0
		}
	}
	return warns
}

func (c Config) Validate() error {
	if len(c.Worlds) == 0 {
		return fmt.Errorf("worlds must not be empty")
	}
	seen := map[string]bool{}
	for _, w := range c.Worlds {
		if strings.TrimSpace(w.Name) == "" {
			return fmt.Errorf("world name must not be empty")
		}
		if seen[w.Name] {
			return fmt.Errorf("duplicate world name: %s", w.Name)
		}
		seen[w.Name] = true
	}
	for id, url := range c.Peers {
		if strings.TrimSpace(id) == "" || strings.TrimSpace(url) == "" {
			return fmt.Errorf("peers entries need both id and url")
		}
	}
	return nil
}

func (c Config) WorldSpecByName(name string) (WorldSpec, bool) {
	for _, w := range c.Worlds {
		if w.Name == name {
			return w, true
		}
	}
	return WorldSpec{}, false
}

func (c Config) PeerIDs() []string {
	out := make([]string, 0, len(c.Peers))
	for id := range c.Peers {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
