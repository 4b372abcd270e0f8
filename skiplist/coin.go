package skiplist

import "math/rand"

const probability = 0.5

// CoinSource 提供獨立的公平硬幣，用來決定新節點的高度
type CoinSource interface {
	Flip() bool
}

// CoinFunc 讓一般函數當作 CoinSource 使用（測試時可固定結果）
type CoinFunc func() bool

func (f CoinFunc) Flip() bool {
	return f()
}

type randCoin struct {
	rand *rand.Rand
}

// NewRandCoin 以 seed 建立可重現的硬幣；非 goroutine safe，由使用者持鎖呼叫
func NewRandCoin(seed int64) CoinSource {
	return &randCoin{rand: rand.New(rand.NewSource(seed))}
}

func (c *randCoin) Flip() bool {
	return c.rand.Float64() < probability
}

// ScriptedCoin 依序回傳 flips，用完後一律回傳 false
func ScriptedCoin(flips ...bool) CoinSource {
	i := 0
	return CoinFunc(func() bool {
		if i >= len(flips) {
			return false
		}
		f := flips[i]
		i++
		return f
	})
}
