package datastream

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
)

// ZipfDataGenerator 產生符合 Zipf 分布的 key 索引序列
type ZipfDataGenerator struct {
	n       int
	a, b    float64
	Weights []float64
	cdf     []float64
	rng     *rand.Rand
}

func NewZipfDataGenerator(n int, a, b float64, seed int64) *ZipfDataGenerator {
	if n <= 0 {
		return nil
	}
	rng := rand.New(rand.NewSource(seed))
	weights := make([]float64, n)
	var sum float64
	for i := 1; i <= n; i++ {
		weights[i-1] = 1.0 / math.Pow(float64(i)+b, a)
		sum += weights[i-1]
	}
	// 正規化
	for i := range weights {
		weights[i] /= sum
	}
	// 熱點隨機散布在 key 空間
	rng.Shuffle(len(weights), func(i, j int) {
		weights[i], weights[j] = weights[j], weights[i]
	})
	// 建立累積分布函數 (CDF)
	cdf := make([]float64, n)
	cdf[0] = weights[0]
	for i := 1; i < n; i++ {
		cdf[i] = cdf[i-1] + weights[i]
	}
	return &ZipfDataGenerator{
		n:       n,
		a:       a,
		b:       b,
		Weights: weights,
		cdf:     cdf,
		rng:     rng,
	}
}

// Next 產生一筆查詢 (回傳索引 0~n-1)
func (z *ZipfDataGenerator) Next() int {
	return searchCDF(z.cdf, z.rng.Float64())
}

func (z *ZipfDataGenerator) Len() int {
	return z.n
}

func (z *ZipfDataGenerator) GetKeyMap() map[string]float64 {
	result := make(map[string]float64, z.n)
	for i := 0; i < z.n; i++ {
		result[KeyName(i)] = z.Weights[i]
	}
	return result
}

func (z *ZipfDataGenerator) Entropy() float64 {
	h := 0.0
	for _, p := range z.Weights {
		if p > 0 {
			h -= p * math.Log2(p)
		}
	}
	return h
}

func (z *ZipfDataGenerator) DistributeToCSV(writer *csv.Writer) error {
	keys := make([]string, 0, z.n+1)
	probs := make([]string, 0, z.n+1)
	keys = append(keys, "key")
	probs = append(probs, "prob")
	for i := 0; i < z.n; i++ {
		keys = append(keys, KeyName(i))
		probs = append(probs, fmt.Sprintf("%f", z.Weights[i]))
	}
	if err := writer.Write(keys); err != nil {
		return err
	}
	if err := writer.Write(probs); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// searchCDF 二分搜尋第一個 >= r 的位置
func searchCDF(cdf []float64, r float64) int {
	lo, hi := 0, len(cdf)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if r > cdf[mid] {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
