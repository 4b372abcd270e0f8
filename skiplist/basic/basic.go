package basic

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Hakuto4838/SkipKV.git/skiplist"
)

// DefaultMaxLevel 預設最高層級（level 0..DefaultMaxLevel）
const DefaultMaxLevel = 10

type basicNode[K cmp.Ordered, V any] struct {
	key   K
	value V
	next  []*basicNode[K, V] // next[i] 為第 i 層的下一個節點
}

// BasicSkipList 以單一 mutex 保護所有操作的 skip list
//
// head 為哨兵節點，高度固定為 maxLevel；level 為目前有資料的最高層。
// 所有節點只經由第 0 層串起，高層的 next 只是跳躍用的指標。
type BasicSkipList[K cmp.Ordered, V any] struct {
	mu       sync.Mutex
	head     *basicNode[K, V]
	maxLevel int
	level    int
	size     int
	coin     skiplist.CoinSource
	logger   *slog.Logger
}

var _ skiplist.Index[string, string] = (*BasicSkipList[string, string])(nil)
var _ skiplist.Inspectable[string, string] = (*BasicSkipList[string, string])(nil)

type options struct {
	coin   skiplist.CoinSource
	logger *slog.Logger
}

type Option func(*options)

// WithCoin 指定決定節點高度的硬幣來源
func WithCoin(coin skiplist.CoinSource) Option {
	return func(o *options) {
		if coin != nil {
			o.coin = coin
		}
	}
}

// WithSeed 以固定 seed 的亂數硬幣決定節點高度
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.coin = skiplist.NewRandCoin(seed)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func newNode[K cmp.Ordered, V any](key K, value V, level int) *basicNode[K, V] {
	return &basicNode[K, V]{
		key:   key,
		value: value,
		next:  make([]*basicNode[K, V], level+1),
	}
}

// NewBasicSkipList 建立空的 skip list，maxLevel 為 0 時退化成單層串列
func NewBasicSkipList[K cmp.Ordered, V any](maxLevel int, opts ...Option) (*BasicSkipList[K, V], error) {
	if maxLevel < 0 {
		return nil, fmt.Errorf("max level %d: %w", maxLevel, skiplist.ErrInvalidMaxLevel)
	}
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.coin == nil {
		o.coin = skiplist.NewRandCoin(time.Now().UnixNano())
	}

	var zeroK K
	var zeroV V
	return &BasicSkipList[K, V]{
		head:     newNode(zeroK, zeroV, maxLevel),
		maxLevel: maxLevel,
		level:    0,
		coin:     o.coin,
		logger:   o.logger,
	}, nil
}

// randomLevel 擲硬幣決定高度，P(level >= k) = 2^-k，不超過 maxLevel
func (sl *BasicSkipList[K, V]) randomLevel() int {
	lvl := 0
	for lvl < sl.maxLevel && sl.coin.Flip() {
		lvl++
	}
	return lvl
}

// findPredecessors 由最高層往下找每一層最後一個 key < target 的節點。
// update 不為 nil 時記錄各層的前驅；回傳第 0 層前驅的下一個節點。
// 呼叫者必須持有 sl.mu。
func (sl *BasicSkipList[K, V]) findPredecessors(key K, update []*basicNode[K, V]) *basicNode[K, V] {
	cur := sl.head
	for h := sl.level; h >= 0; h-- {
		for cur.next[h] != nil && cur.next[h].key < key {
			cur = cur.next[h]
		}
		if update != nil {
			update[h] = cur
		}
	}
	return cur.next[0]
}

// Insert 插入新的 key；key 已存在時回傳 ErrDuplicateKey，且不覆寫原值
func (sl *BasicSkipList[K, V]) Insert(key K, value V) error {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	update := make([]*basicNode[K, V], sl.maxLevel+1)
	next := sl.findPredecessors(key, update)
	if next != nil && next.key == key {
		sl.logger.Debug("skiplist: key already exists", "key", key)
		return fmt.Errorf("insert %v: %w", key, skiplist.ErrDuplicateKey)
	}

	lvl := sl.randomLevel()
	if lvl > sl.level {
		// 新的高層前驅都是 head
		for h := sl.level + 1; h <= lvl; h++ {
			update[h] = sl.head
		}
		sl.level = lvl
	}

	nd := newNode(key, value, lvl)
	for h := 0; h <= lvl; h++ {
		nd.next[h] = update[h].next[h]
		update[h].next[h] = nd
	}
	sl.size++

	sl.logger.Debug("skiplist: inserted", "key", key, "level", lvl)
	return nil
}

// Delete 從所有層移除 key；不存在時回傳 ErrKeyNotFound
func (sl *BasicSkipList[K, V]) Delete(key K) error {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	update := make([]*basicNode[K, V], sl.maxLevel+1)
	target := sl.findPredecessors(key, update)
	if target == nil || target.key != key {
		sl.logger.Debug("skiplist: delete missing key", "key", key)
		return fmt.Errorf("delete %v: %w", key, skiplist.ErrKeyNotFound)
	}

	for h := len(target.next) - 1; h >= 0; h-- {
		update[h].next[h] = target.next[h]
		target.next[h] = nil
	}

	// 最高層空了就降層
	for sl.level > 0 && sl.head.next[sl.level] == nil {
		sl.level--
	}
	sl.size--

	sl.logger.Debug("skiplist: deleted", "key", key)
	return nil
}

// Update 原地修改已存在 key 的 value
func (sl *BasicSkipList[K, V]) Update(key K, value V) error {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	nd := sl.findPredecessors(key, nil)
	if nd == nil || nd.key != key {
		sl.logger.Debug("skiplist: update missing key", "key", key)
		return fmt.Errorf("update %v: %w", key, skiplist.ErrKeyNotFound)
	}
	nd.value = value
	sl.logger.Debug("skiplist: updated", "key", key)
	return nil
}

// Find 取得 key 對應的 value。
// 與寫入操作共用同一把鎖，避免讀到正在被移除的節點。
func (sl *BasicSkipList[K, V]) Find(key K) (V, error) {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	nd := sl.findPredecessors(key, nil)
	if nd == nil || nd.key != key {
		var zero V
		return zero, fmt.Errorf("find %v: %w", key, skiplist.ErrKeyNotFound)
	}
	return nd.value, nil
}

// Contains 判斷 key 是否存在
func (sl *BasicSkipList[K, V]) Contains(key K) bool {
	_, err := sl.Find(key)
	return err == nil
}

func (sl *BasicSkipList[K, V]) Size() int {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.size
}

func (sl *BasicSkipList[K, V]) MaxLevel() int {
	return sl.maxLevel
}

// Export 沿第 0 層依序輸出所有 key/value
func (sl *BasicSkipList[K, V]) Export() []skiplist.Pair[K, V] {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	out := make([]skiplist.Pair[K, V], 0, sl.size)
	for nd := sl.head.next[0]; nd != nil; nd = nd.next[0] {
		out = append(out, skiplist.Pair[K, V]{Key: nd.key, Value: nd.value})
	}
	return out
}

// Import 逐筆呼叫 Insert，每筆各自持鎖；重複的 key 只計數不覆寫
func (sl *BasicSkipList[K, V]) Import(pairs []skiplist.Pair[K, V]) (inserted, duplicates int) {
	for _, p := range pairs {
		err := sl.Insert(p.Key, p.Value)
		switch {
		case err == nil:
			inserted++
		case errors.Is(err, skiplist.ErrDuplicateKey):
			duplicates++
		}
	}
	return inserted, duplicates
}

// Clear 釋放所有節點，回到剛建立時的狀態
func (sl *BasicSkipList[K, V]) Clear() {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	nd := sl.head.next[0]
	for nd != nil {
		next := nd.next[0]
		clear(nd.next)
		nd = next
	}
	clear(sl.head.next)
	sl.level = 0
	sl.size = 0
}

// Inspect 持鎖呼叫 fn；fn 內不可再呼叫 sl 的方法
func (sl *BasicSkipList[K, V]) Inspect(fn func(skiplist.Analyable[K, V])) {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	fn(listView[K, V]{sl: sl})
}

type listView[K cmp.Ordered, V any] struct {
	sl *BasicSkipList[K, V]
}

func (v listView[K, V]) GetHead() skiplist.Nodelike[K, V] {
	return v.sl.head
}

func (v listView[K, V]) GetMaxStats() (int, int) {
	return v.sl.size, v.sl.level
}

func (nd *basicNode[K, V]) GetKey() K {
	return nd.key
}

func (nd *basicNode[K, V]) GetValue() V {
	return nd.value
}

func (nd *basicNode[K, V]) GetLevel() int {
	return len(nd.next) - 1
}

func (nd *basicNode[K, V]) GetNextAt(level int) skiplist.Nodelike[K, V] {
	if level < 0 || level >= len(nd.next) {
		return nil
	}
	if nd.next[level] == nil {
		return nil
	}
	return nd.next[level]
}
