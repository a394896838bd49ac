package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"blueprint-optimizer/internal/buildorder"
)

type CacheSuite struct {
	suite.Suite
	cache *ResultCache
	ctx   context.Context
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheSuite))
}

func (s *CacheSuite) SetupTest() {
	cache, err := OpenCache(CacheConfig{Enabled: true, Type: "sqlite", Path: ":memory:"})
	s.Require().NoError(err)
	s.cache = cache
	s.ctx = context.Background()
}

func (s *CacheSuite) TearDownTest() {
	s.Require().NoError(s.cache.Close())
}

func (s *CacheSuite) blueprint(id int) *buildorder.Blueprint {
	return buildorder.MustBlueprint(id, map[buildorder.Resource]map[buildorder.Resource]int{
		buildorder.Ore:      {buildorder.Ore: 4},
		buildorder.Clay:     {buildorder.Ore: 2},
		buildorder.Obsidian: {buildorder.Ore: 3, buildorder.Clay: 14},
		buildorder.Geode:    {buildorder.Ore: 2, buildorder.Obsidian: 7},
	})
}

func (s *CacheSuite) TestMissThenHit() {
	bp := s.blueprint(1)
	opts := buildorder.DefaultOptions()

	_, ok, err := s.cache.Get(s.ctx, bp, 24, opts)
	s.Require().NoError(err)
	s.Require().False(ok)

	res := buildorder.Solve(bp, 24, opts)
	s.Require().NoError(s.cache.Put(s.ctx, bp, 24, opts, res, "run-1"))

	got, ok, err := s.cache.Get(s.ctx, bp, 24, opts)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal(res.Output, got.Output)
	s.Equal(res.Plan, got.Plan)
	s.Equal(res.Stats, got.Stats)
}

// TestIDIsNotPartOfKey: a second blueprint with the same table reuses the entry.
func (s *CacheSuite) TestIDIsNotPartOfKey() {
	opts := buildorder.DefaultOptions()
	res := buildorder.Solve(s.blueprint(1), 12, opts)
	s.Require().NoError(s.cache.Put(s.ctx, s.blueprint(1), 12, opts, res, "run-1"))

	got, ok, err := s.cache.Get(s.ctx, s.blueprint(77), 12, opts)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal(res.Output, got.Output)
}

func (s *CacheSuite) TestHorizonIsPartOfKey() {
	opts := buildorder.DefaultOptions()
	bp := s.blueprint(1)
	s.Require().NoError(s.cache.Put(s.ctx, bp, 12, opts, buildorder.Solve(bp, 12, opts), "run-1"))

	_, ok, err := s.cache.Get(s.ctx, bp, 13, opts)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *CacheSuite) TestPlanlessEntryDoesNotSatisfyPlanRequest() {
	bp := s.blueprint(1)
	noPlan := buildorder.Options{CapBots: true}
	s.Require().NoError(s.cache.Put(s.ctx, bp, 20, noPlan, buildorder.Solve(bp, 20, noPlan), "run-1"))

	_, ok, err := s.cache.Get(s.ctx, bp, 20, buildorder.DefaultOptions())
	s.Require().NoError(err)
	s.False(ok)

	_, ok, err = s.cache.Get(s.ctx, bp, 20, noPlan)
	s.Require().NoError(err)
	s.True(ok)
}

func (s *CacheSuite) TestLargeCostsKeepFixedKey() {
	costs := make(map[buildorder.Resource]map[buildorder.Resource]int)
	for _, kind := range buildorder.Resources {
		costs[kind] = make(map[buildorder.Resource]int)
		for _, res := range buildorder.Resources {
			costs[kind][res] = 10000000 + 1000*int(kind) + int(res)
		}
	}
	bp := buildorder.MustBlueprint(3, costs)
	s.Require().Greater(len(bp.Fingerprint()), 128)
	s.Len(cacheKey(bp, 24), 64)
	s.NotEqual(cacheKey(bp, 24), cacheKey(bp, 25))

	opts := buildorder.Options{}
	s.Require().NoError(s.cache.Put(s.ctx, bp, 24, opts, buildorder.Result{Output: 3}, "run-1"))
	got, ok, err := s.cache.Get(s.ctx, bp, 24, opts)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal(3, got.Output)
}

func (s *CacheSuite) TestPutReplaces() {
	bp := s.blueprint(1)
	opts := buildorder.Options{}
	s.Require().NoError(s.cache.Put(s.ctx, bp, 5, opts, buildorder.Result{Output: 1}, "run-1"))
	s.Require().NoError(s.cache.Put(s.ctx, bp, 5, opts, buildorder.Result{Output: 2}, "run-2"))

	got, ok, err := s.cache.Get(s.ctx, bp, 5, opts)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal(2, got.Output)
}

func TestRunnerUsesCache(t *testing.T) {
	cache, err := OpenCache(CacheConfig{Enabled: true, Type: "sqlite", Path: filepath.Join(t.TempDir(), "cache.db")})
	require.NoError(t, err)
	defer cache.Close()

	cfg := testConfig()
	bps := loadExample(t)

	first, err := NewRunner(cfg, cache).Evaluate(context.Background(), bps, 20)
	require.NoError(t, err)
	second, err := NewRunner(cfg, cache).Evaluate(context.Background(), bps, 20)
	require.NoError(t, err)

	for i := range bps {
		assert.False(t, first[i].Cached)
		assert.True(t, second[i].Cached)
		assert.Equal(t, first[i].Output, second[i].Output)
		assert.Equal(t, first[i].Plan, second[i].Plan)
		assert.Equal(t, first[i].Stats, second[i].Stats)
	}
}

func TestOpenCacheRejectsUnknownType(t *testing.T) {
	_, err := OpenCache(CacheConfig{Type: "mysql"})
	assert.Error(t, err)
}

func TestPlanEncoding(t *testing.T) {
	plan := []buildorder.Step{{Minute: 3, Kind: buildorder.Clay}, {Minute: 11, Kind: buildorder.Geode}}
	enc := encodePlan(plan)
	assert.Equal(t, "3:clay,11:geode", enc)

	got, err := decodePlan(enc)
	require.NoError(t, err)
	assert.Equal(t, plan, got)

	got, err = decodePlan("")
	require.NoError(t, err)
	assert.Nil(t, got)

	for _, bad := range []string{"3", "x:clay", "3:gold"} {
		_, err := decodePlan(bad)
		assert.Error(t, err, bad)
	}
}
