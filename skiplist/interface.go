package skiplist

import "cmp"

// Pair 一筆 key/value，Export 依 key 升冪輸出
type Pair[K any, V any] struct {
	Key   K
	Value V
}

// Index 有序 key-value 索引的操作介面
//
// Insert 不會覆寫已存在的 key（回傳 ErrDuplicateKey），改值請用 Update。
type Index[K cmp.Ordered, V any] interface {
	Insert(key K, value V) error
	Delete(key K) error
	Update(key K, value V) error
	Find(key K) (V, error)
	Contains(key K) bool
	Size() int
	Export() []Pair[K, V]
	Import(pairs []Pair[K, V]) (inserted, duplicates int)
}

// Analyable 提供分析功能的介面
type Analyable[K cmp.Ordered, V any] interface {
	GetHead() Nodelike[K, V]
	// GetMaxStats 獲取節點數和目前最高層級
	GetMaxStats() (size int, level int)
}

// Inspectable 可在持有鎖的情況下提供 Analyable 視圖
type Inspectable[K cmp.Ordered, V any] interface {
	Inspect(fn func(Analyable[K, V]))
}

type Nodelike[K cmp.Ordered, V any] interface {
	GetKey() K
	GetValue() V
	GetLevel() int
	GetNextAt(level int) Nodelike[K, V]
}
