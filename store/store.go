// Package store 以 skip list 為索引的簡易 key-value store，整份資料以純文字快照保存。
//
// 快照為盡力而為：Dump 以原子方式取代檔案，但兩次 Dump 之間的寫入不會落地。
package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Hakuto4838/SkipKV.git/config"
	"github.com/Hakuto4838/SkipKV.git/metrics"
	"github.com/Hakuto4838/SkipKV.git/skiplist"
	"github.com/Hakuto4838/SkipKV.git/skiplist/analyTool"
	"github.com/Hakuto4838/SkipKV.git/skiplist/basic"
	"github.com/Hakuto4838/SkipKV.git/snapshot"
)

// Store 持有一個 string key/value 的 skip list 索引
type Store struct {
	name   string
	path   string
	codec  snapshot.Codec
	index  *basic.BasicSkipList[string, string]
	logger *slog.Logger
}

var _ skiplist.Index[string, string] = (*Store)(nil)

type options struct {
	logger *slog.Logger
	coin   skiplist.CoinSource
}

type Option func(*options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithCoin 取代由 config seed 產生的硬幣
func WithCoin(coin skiplist.CoinSource) Option {
	return func(o *options) {
		o.coin = coin
	}
}

// LoadResult 一次 Load 的結果
type LoadResult struct {
	Inserted   int
	Duplicates int
	Malformed  int
}

func New(cfg config.Config, opts ...Option) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default().With("store", cfg.Name)
	}
	if o.coin == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		o.coin = skiplist.NewRandCoin(seed)
	}

	index, err := basic.NewBasicSkipList[string, string](cfg.MaxLevel,
		basic.WithCoin(o.coin),
		basic.WithLogger(o.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", cfg.Name, err)
	}

	metrics.Keys.WithLabelValues(cfg.Name).Set(0)
	return &Store{
		name:   cfg.Name,
		path:   cfg.SnapshotPath,
		codec:  snapshot.Codec{Delimiter: cfg.Delimiter, Logger: o.logger},
		index:  index,
		logger: o.logger,
	}, nil
}

func (s *Store) Name() string {
	return s.name
}

func (s *Store) observe(op string, err error) {
	metrics.ObserveOp(s.name, op, err)
	metrics.Keys.WithLabelValues(s.name).Set(float64(s.index.Size()))
}

// Insert 新增 key；已存在時回傳 skiplist.ErrDuplicateKey 並保留原值
func (s *Store) Insert(key, value string) error {
	err := s.index.Insert(key, value)
	s.observe("insert", err)
	return err
}

func (s *Store) Delete(key string) error {
	err := s.index.Delete(key)
	s.observe("delete", err)
	return err
}

func (s *Store) Update(key, value string) error {
	err := s.index.Update(key, value)
	metrics.ObserveOp(s.name, "update", err)
	return err
}

func (s *Store) Find(key string) (string, error) {
	value, err := s.index.Find(key)
	metrics.ObserveOp(s.name, "find", err)
	return value, err
}

func (s *Store) Contains(key string) bool {
	return s.index.Contains(key)
}

func (s *Store) Size() int {
	return s.index.Size()
}

// Export 依 key 升冪回傳所有資料
func (s *Store) Export() []skiplist.Pair[string, string] {
	return s.index.Export()
}

// Import 逐筆插入，key 已存在的略過
func (s *Store) Import(pairs []skiplist.Pair[string, string]) (inserted, duplicates int) {
	for _, p := range pairs {
		switch metrics.Result(s.Insert(p.Key, p.Value)) {
		case metrics.ResultOK:
			inserted++
		case metrics.ResultDuplicate:
			duplicates++
		}
	}
	return inserted, duplicates
}

// Dump 將整份資料寫到設定的快照路徑
func (s *Store) Dump() error {
	return s.DumpTo(s.path)
}

func (s *Store) DumpTo(path string) error {
	pairs := s.index.Export()
	if err := snapshot.Save(path, s.codec, pairs); err != nil {
		return err
	}
	metrics.SnapshotRecords.WithLabelValues(s.name, "dump").Add(float64(len(pairs)))
	return nil
}

// Load 逐筆 Insert 快照內容；每筆都是一般的 Insert，載入期間其他寫入可以穿插
func (s *Store) Load() (LoadResult, error) {
	return s.LoadFrom(s.path)
}

func (s *Store) LoadFrom(path string) (LoadResult, error) {
	var res LoadResult
	stats, err := snapshot.Load(path, s.codec, func(key, value string) {
		switch metrics.Result(s.Insert(key, value)) {
		case metrics.ResultOK:
			res.Inserted++
		case metrics.ResultDuplicate:
			res.Duplicates++
		}
	})
	res.Malformed = stats.Malformed
	metrics.SnapshotRecords.WithLabelValues(s.name, "load").Add(float64(stats.Records))
	metrics.SnapshotMalformed.WithLabelValues(s.name).Add(float64(stats.Malformed))
	return res, err
}

// Display 逐層印出 "Level i: k:v;..."
func (s *Store) Display(w io.Writer) {
	s.index.Inspect(func(a skiplist.Analyable[string, string]) {
		analyTool.PrintLevels(w, a)
	})
}

// PrintStructure 以欄位對齊畫出前 maxNodes 個節點，每層一列
func (s *Store) PrintStructure(w io.Writer, maxNodes int) {
	s.index.Inspect(func(a skiplist.Analyable[string, string]) {
		analyTool.PrintSkipList(w, a, s.index.MaxLevel(), maxNodes)
	})
}

func (s *Store) WriteCSV(w *csv.Writer) error {
	var err error
	s.index.Inspect(func(a skiplist.Analyable[string, string]) {
		err = analyTool.WriteCSV(w, a)
	})
	return err
}

// Check 檢查索引的排序與層級結構
func (s *Store) Check() error {
	var err error
	s.index.Inspect(func(a skiplist.Analyable[string, string]) {
		err = analyTool.CheckStruct(a)
	})
	return err
}

// LevelCounts 每層的節點數
func (s *Store) LevelCounts() []int {
	var counts []int
	s.index.Inspect(func(a skiplist.Analyable[string, string]) {
		counts = analyTool.CountLevel(a)
	})
	return counts
}

// AvgSteps 依出現機率加權的平均搜尋步數，以及每個 key 的步數
func (s *Store) AvgSteps(keys map[string]float64) (float64, analyTool.StepMap[string]) {
	var avg float64
	var steps analyTool.StepMap[string]
	s.index.Inspect(func(a skiplist.Analyable[string, string]) {
		avg, steps = analyTool.AnalyzeStep(a, keys)
	})
	return avg, steps
}

// Clear 清空所有 key
func (s *Store) Clear() {
	s.index.Clear()
	metrics.Keys.WithLabelValues(s.name).Set(0)
	s.logger.Debug("cleared")
}
