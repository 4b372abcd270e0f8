package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Hakuto4838/SkipKV.git/skiplist"
)

// result 標籤
const (
	ResultOK        = "ok"
	ResultDuplicate = "duplicate"
	ResultNotFound  = "not_found"
	ResultError     = "error"
)

var (
	// Operations 依 store、操作與結果計數
	Operations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skipkv_operations_total",
			Help: "Total number of index operations processed",
		},
		[]string{"store", "op", "result"},
	)

	// Keys 各 store 目前的 key 數
	Keys = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "skipkv_keys",
			Help: "Number of keys currently stored",
		},
		[]string{"store"},
	)

	// SnapshotRecords 寫出 ("dump") 與讀入 ("load") 的紀錄數
	SnapshotRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skipkv_snapshot_records_total",
			Help: "Total number of snapshot records written or read",
		},
		[]string{"store", "direction"},
	)

	SnapshotMalformed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skipkv_snapshot_malformed_total",
			Help: "Total number of malformed snapshot lines skipped on load",
		},
		[]string{"store"},
	)
)

// Result 將操作的錯誤對應到 result 標籤
func Result(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, skiplist.ErrDuplicateKey):
		return ResultDuplicate
	case errors.Is(err, skiplist.ErrKeyNotFound):
		return ResultNotFound
	default:
		return ResultError
	}
}

// ObserveOp 記錄一次操作結果
func ObserveOp(store, op string, err error) {
	Operations.WithLabelValues(store, op, Result(err)).Inc()
}
