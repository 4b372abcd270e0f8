package datastream

import (
	"fmt"
	"math/rand"
	"strconv"

	"github.com/spaolacci/murmur3"
	"github.com/tidwall/btree"

	"github.com/Hakuto4838/SkipKV.git/skiplist"
)

// DataStream 定義資料流的介面，Next 回傳 key 的索引 0~n-1
type DataStream interface {
	Next() int
	Len() int
	GetKeyMap() map[string]float64
	Entropy() float64
}

// KeyName 將索引轉成 key，以十進位字串表示（依字典序排序）
func KeyName(i int) string {
	return strconv.Itoa(i)
}

// OperationType 表示操作種類
type OperationType uint8

const (
	OpFind OperationType = iota
	OpInsert
	OpDelete
	OpUpdate
)

func (t OperationType) String() string {
	switch t {
	case OpFind:
		return "Find"
	case OpInsert:
		return "Insert"
	case OpDelete:
		return "Delete"
	case OpUpdate:
		return "Update"
	default:
		return "Unknown"
	}
}

// Operation 表示一筆操作
type Operation struct {
	Type  OperationType
	Key   string
	Value string
}

// Mix 各種寫入操作的比例，剩下的是 Find
type Mix struct {
	Insert float64
	Delete float64
	Update float64
}

// DefaultMix 與常見讀多寫少的負載相近
var DefaultMix = Mix{Insert: 0.3, Delete: 0.1, Update: 0.1}

// GenerateOps 由 ds 取 k 個 key 並依 mix 產生操作序列。
// key 第一次出現時一定是 Insert。
func GenerateOps(ds DataStream, k int, mix Mix, seed int64) ([]Operation, error) {
	if k < 0 {
		return nil, fmt.Errorf("invalid k: %d", k)
	}
	if mix.Insert < 0 || mix.Delete < 0 || mix.Update < 0 || mix.Insert+mix.Delete+mix.Update > 1 {
		return nil, fmt.Errorf("invalid mix: %+v", mix)
	}

	rng := rand.New(rand.NewSource(seed))
	everSeen := make(map[int]bool, ds.Len())
	ops := make([]Operation, 0, k)
	for i := 0; i < k; i++ {
		idx := ds.Next()
		op := Operation{Key: KeyName(idx)}

		r := rng.Float64()
		switch {
		case !everSeen[idx]:
			op.Type = OpInsert
			everSeen[idx] = true
		case r < mix.Insert:
			op.Type = OpInsert
		case r < mix.Insert+mix.Delete:
			op.Type = OpDelete
		case r < mix.Insert+mix.Delete+mix.Update:
			op.Type = OpUpdate
		default:
			op.Type = OpFind
		}
		if op.Type == OpInsert || op.Type == OpUpdate {
			op.Value = "v" + strconv.Itoa(i)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// Partition 依 key 的 murmur3 雜湊分給 n 個 worker，同一個 key 只會落在同一個 worker，
// 因此各 worker 並行重播後的最終狀態與依序重播相同。
func Partition(ops []Operation, n int) [][]Operation {
	if n <= 1 {
		return [][]Operation{ops}
	}
	parts := make([][]Operation, n)
	for _, op := range ops {
		w := murmur3.Sum32([]byte(op.Key)) % uint32(n)
		parts[w] = append(parts[w], op)
	}
	return parts
}

// Expected 依序重播 ops 得到最終應有的資料（Insert 不覆寫、Update 只改存在的 key）
func Expected(ops []Operation) []skiplist.Pair[string, string] {
	var m btree.Map[string, string]
	for _, op := range ops {
		switch op.Type {
		case OpInsert:
			if _, ok := m.Get(op.Key); !ok {
				m.Set(op.Key, op.Value)
			}
		case OpDelete:
			m.Delete(op.Key)
		case OpUpdate:
			if _, ok := m.Get(op.Key); ok {
				m.Set(op.Key, op.Value)
			}
		}
	}

	out := make([]skiplist.Pair[string, string], 0, m.Len())
	m.Scan(func(key, value string) bool {
		out = append(out, skiplist.Pair[string, string]{Key: key, Value: value})
		return true
	})
	return out
}

// Apply 對 idx 執行一筆操作；操作本身的 ErrDuplicateKey / ErrKeyNotFound 不算錯誤
func Apply(idx skiplist.Index[string, string], op Operation) error {
	switch op.Type {
	case OpFind:
		_, _ = idx.Find(op.Key)
	case OpInsert:
		_ = idx.Insert(op.Key, op.Value)
	case OpDelete:
		_ = idx.Delete(op.Key)
	case OpUpdate:
		_ = idx.Update(op.Key, op.Value)
	default:
		return fmt.Errorf("unknown operation %v", op.Type)
	}
	return nil
}

// SequenceModel 以既有的 Operation 序列提供順序重播
type SequenceModel struct {
	ops []Operation
	pos int
}

// NewSequenceModelFromOps 由外部供給的操作序列建立模型
func NewSequenceModelFromOps(ops []Operation) *SequenceModel {
	cp := make([]Operation, len(ops))
	copy(cp, ops)
	return &SequenceModel{ops: cp}
}

// Next 回傳下一筆操作，若結束則回傳零值與 false
func (m *SequenceModel) Next() (Operation, bool) {
	if m.pos >= len(m.ops) {
		return Operation{}, false
	}
	op := m.ops[m.pos]
	m.pos++
	return op, true
}

// Reset 游標重置到起點
func (m *SequenceModel) Reset() { m.pos = 0 }
