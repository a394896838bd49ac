package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"blueprint-optimizer/internal/buildorder"
)

// resultModel is one solved (cost table, horizon) pair. The blueprint ID is not
// part of the key: it has no effect on the answer.
type resultModel struct {
	CacheKey    string `gorm:"primaryKey;size:64"`
	Fingerprint string `gorm:"type:text"`
	Horizon     int
	Output      int
	HasPlan     bool
	Plan        string `gorm:"type:text"`
	Nodes       int
	Pruned      int
	Leaves      int
	RunID       string `gorm:"size:36"`
	CreatedAt   time.Time
}

func (resultModel) TableName() string { return "blueprint_results" }

// ResultCache stores finished searches so repeated runs over the same tables are free.
type ResultCache struct {
	db *gorm.DB
}

// OpenCache connects to the configured store and migrates its schema.
func OpenCache(cfg CacheConfig) (*ResultCache, error) {
	var dialector gorm.Dialector
	switch cfg.Type {
	case "postgres":
		dialector = postgres.Open(cfg.URL)
	case "sqlite":
		path := cfg.Path
		if path == "" {
			path = ":memory:"
		}
		dialector = sqlite.Open(path)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	// SQLite serialises writers anyway, and ":memory:" is per connection.
	if cfg.Type == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying db: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&resultModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate cache: %w", err)
	}
	return &ResultCache{db: db}, nil
}

// cacheKey hashes the fingerprint so the key length does not grow with the costs.
func cacheKey(bp *buildorder.Blueprint, horizon int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s@%d", bp.Fingerprint(), horizon)))
	return hex.EncodeToString(sum[:])
}

// Get returns a stored result. A stored result without a plan does not satisfy a
// request that tracks plans.
func (c *ResultCache) Get(ctx context.Context, bp *buildorder.Blueprint, horizon int, opts buildorder.Options) (buildorder.Result, bool, error) {
	var row resultModel
	err := c.db.WithContext(ctx).First(&row, "cache_key = ?", cacheKey(bp, horizon)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return buildorder.Result{}, false, nil
	}
	if err != nil {
		return buildorder.Result{}, false, fmt.Errorf("cache lookup: %w", err)
	}
	if opts.TrackPlan && !row.HasPlan {
		return buildorder.Result{}, false, nil
	}

	res := buildorder.Result{
		Output: row.Output,
		Stats:  buildorder.Stats{Nodes: row.Nodes, Pruned: row.Pruned, Leaves: row.Leaves},
	}
	if row.HasPlan {
		plan, err := decodePlan(row.Plan)
		if err != nil {
			return buildorder.Result{}, false, fmt.Errorf("cache entry %s: %w", row.CacheKey, err)
		}
		res.Plan = plan
	}
	return res, true, nil
}

// Put records a result, replacing any earlier entry for the same key.
func (c *ResultCache) Put(ctx context.Context, bp *buildorder.Blueprint, horizon int, opts buildorder.Options, res buildorder.Result, runID string) error {
	row := resultModel{
		CacheKey:    cacheKey(bp, horizon),
		Fingerprint: bp.Fingerprint(),
		Horizon:     horizon,
		Output:      res.Output,
		HasPlan:     opts.TrackPlan,
		Plan:        encodePlan(res.Plan),
		Nodes:       res.Stats.Nodes,
		Pruned:      res.Stats.Pruned,
		Leaves:      res.Stats.Leaves,
		RunID:       runID,
	}
	err := c.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("cache store: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *ResultCache) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// encodePlan writes "5:geode,9:geode".
func encodePlan(plan []buildorder.Step) string {
	parts := make([]string, len(plan))
	for i, st := range plan {
		parts[i] = strconv.Itoa(st.Minute) + ":" + st.Kind.String()
	}
	return strings.Join(parts, ",")
}

func decodePlan(s string) ([]buildorder.Step, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	plan := make([]buildorder.Step, 0, len(parts))
	for _, p := range parts {
		minute, kindName, ok := strings.Cut(p, ":")
		if !ok {
			return nil, fmt.Errorf("bad plan step %q", p)
		}
		m, err := strconv.Atoi(minute)
		if err != nil {
			return nil, fmt.Errorf("bad plan step %q: %w", p, err)
		}
		kind, ok := buildorder.ParseResource(kindName)
		if !ok {
			return nil, fmt.Errorf("bad plan step %q: unknown kind", p)
		}
		plan = append(plan, buildorder.Step{Minute: m, Kind: kind})
	}
	return plan, nil
}
