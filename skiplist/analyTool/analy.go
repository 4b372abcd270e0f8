package analyTool

import (
	"cmp"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/Hakuto4838/SkipKV.git/skiplist"
)

type StepMap[K cmp.Ordered] map[K]int

// FindStep 計算找到指定 key 的總步數和各層步數
func FindStep[K cmp.Ordered, V any](sl skiplist.Analyable[K, V], key K) (step int, level []int) {
	cur := sl.GetHead()
	if cur == nil {
		return 0, []int{}
	}

	totalSteps := 0

	// 獲取目前最高層級
	_, maxLevel := sl.GetMaxStats()
	stepsPerLevel := make([]int, maxLevel+1)

	// 從最高層開始搜尋
	for h := maxLevel; h >= 0; h-- {
		levelSteps := 0

		// 在當前層級水平移動
		for {
			nextNode := cur.GetNextAt(h)
			if nextNode == nil || nextNode.GetKey() >= key {
				break
			}
			cur = nextNode
			levelSteps++
		}

		// 如果找到目標 key，記錄步數並返回
		nextNode := cur.GetNextAt(h)
		if nextNode != nil && nextNode.GetKey() == key {
			levelSteps++ // 加上最後一步
			stepsPerLevel[h] = levelSteps
			totalSteps += levelSteps
			return totalSteps, stepsPerLevel
		}

		stepsPerLevel[h] = levelSteps
		totalSteps += levelSteps + 1 // 加上向下移動
	}

	// 如果沒找到，返回搜尋過程中的總步數
	return totalSteps, stepsPerLevel
}

// AnalyzeStep 根據 map 提供的 key 出現機率計算平均搜尋步數
func AnalyzeStep[K cmp.Ordered, V any](sl skiplist.Analyable[K, V], keys map[K]float64) (float64, StepMap[K]) {
	if len(keys) == 0 {
		return 0.0, nil
	}

	step := StepMap[K]{}
	var totalExpectedSteps float64
	var totalProbability float64

	for k, p := range keys {
		s, _ := FindStep(sl, k)
		step[k] = s
		totalExpectedSteps += float64(s) * p
		totalProbability += p
	}

	if totalProbability > 0 {
		return totalExpectedSteps / totalProbability, step
	}
	return 0.0, step
}

// PrintSkipList 以欄位對齊方式印出 skip list 的結構，head 不印
func PrintSkipList[K cmp.Ordered, V any](w io.Writer, sl skiplist.Analyable[K, V], maxLevel, maxNodes int) {
	_, actualMaxLevel := sl.GetMaxStats()
	maxLevel = min(maxLevel, actualMaxLevel)
	output := make([]string, maxLevel+1)

	for i := maxLevel; i >= 0; i-- {
		output[i] = fmt.Sprintf("level %d : ", i)
	}

	head := sl.GetHead()
	if head == nil || head.GetNextAt(0) == nil {
		fmt.Fprintln(w, "skip list is empty")
		return
	}

	count := 0
	for node := head.GetNextAt(0); node != nil && count < maxNodes; node = node.GetNextAt(0) {
		lv := node.GetLevel()
		for i := range output {
			if i <= lv {
				output[i] += fmt.Sprintf("%3v ->", node.GetKey())
			} else {
				output[i] += "    ->"
			}
		}
		count++
	}

	for i := maxLevel; i >= 0; i-- {
		fmt.Fprintln(w, output[i])
	}
}

// PrintLevels 逐層列出 key:value，格式為 "Level i: k:v;k:v;"
func PrintLevels[K cmp.Ordered, V any](w io.Writer, sl skiplist.Analyable[K, V]) {
	_, level := sl.GetMaxStats()
	head := sl.GetHead()
	if head == nil {
		return
	}

	fmt.Fprintln(w, "*****Skip List*****")
	for i := 0; i <= level; i++ {
		var b strings.Builder
		fmt.Fprintf(&b, "Level %d: ", i)
		for node := head.GetNextAt(i); node != nil; node = node.GetNextAt(i) {
			fmt.Fprintf(&b, "%v:%v;", node.GetKey(), node.GetValue())
		}
		fmt.Fprintln(w, b.String())
	}
}

// CheckStruct 檢查 skip list 的結構是否正確：
//   - 第 0 層 key 嚴格遞增，節點數與 size 相符
//   - 每個節點在 0..GetLevel() 每一層都被前一個同高節點指到（高層為第 0 層的子序列）
//   - 目前層級就是 head 上最高的非空層
func CheckStruct[K cmp.Ordered, V any](sl skiplist.Analyable[K, V]) error {
	size, level := sl.GetMaxStats()
	head := sl.GetHead()
	if head == nil {
		return nil
	}
	if level > head.GetLevel() {
		return fmt.Errorf("level %d exceeds head level %d", level, head.GetLevel())
	}
	if level > 0 && head.GetNextAt(level) == nil {
		return fmt.Errorf("level %d is empty but still current", level)
	}
	if level < head.GetLevel() && head.GetNextAt(level+1) != nil {
		return fmt.Errorf("level %d is populated above current level %d", level+1, level)
	}

	// list[i] 為第 i 層最後走到的節點
	list := make([]skiplist.Nodelike[K, V], head.GetLevel()+1)
	for i := range list {
		list[i] = head
	}

	count := 0
	var prev skiplist.Nodelike[K, V]
	for node := head.GetNextAt(0); node != nil; node = node.GetNextAt(0) {
		if prev != nil && !(prev.GetKey() < node.GetKey()) {
			return fmt.Errorf("level 0 out of order: %v then %v", prev.GetKey(), node.GetKey())
		}
		nodelv := node.GetLevel()
		if nodelv > level {
			return fmt.Errorf("node %v has level %d above current level %d", node.GetKey(), nodelv, level)
		}
		for i := 1; i <= nodelv; i++ {
			if list[i].GetNextAt(i) != node {
				return fmt.Errorf("level %d does not link %v after %v", i, node.GetKey(), list[i].GetKey())
			}
			list[i] = node
		}
		prev = node
		count++
	}

	// 每層最後一個節點之後不可再有節點
	for i := 1; i < len(list); i++ {
		if next := list[i].GetNextAt(i); next != nil {
			return fmt.Errorf("level %d links %v which is not reachable at level 0 order", i, next.GetKey())
		}
	}

	if count != size {
		return fmt.Errorf("size mismatch: counted %d, recorded %d", count, size)
	}
	return nil
}

// CountLevel 計算每層的節點數量（不含 head）
func CountLevel[K cmp.Ordered, V any](sl skiplist.Analyable[K, V]) []int {
	_, maxLevel := sl.GetMaxStats()
	levelCounts := make([]int, maxLevel+1)

	head := sl.GetHead()
	if head == nil {
		return levelCounts
	}
	for current := head.GetNextAt(0); current != nil; current = current.GetNextAt(0) {
		// 該節點存在於 level 0 到 nodeLevel 的所有層
		for i := 0; i <= current.GetLevel() && i < len(levelCounts); i++ {
			levelCounts[i]++
		}
	}
	return levelCounts
}

// PrintLevelCounts 印出 CountLevel 的結果
func PrintLevelCounts(w io.Writer, levelCounts []int) {
	total := 0
	if len(levelCounts) > 0 {
		total = levelCounts[0]
	}
	fmt.Fprintf(w, "level stats (nodes: %d, top level: %d):\n", total, len(levelCounts)-1)
	for i := len(levelCounts) - 1; i >= 0; i-- {
		fmt.Fprintf(w, "Level %2d: %d\n", i, levelCounts[i])
	}
}

// WriteCSV 將 skip list 的結構輸出到 CSV，每層一列，沒有參與該層的節點留空
func WriteCSV[K cmp.Ordered, V any](writer *csv.Writer, sl skiplist.Analyable[K, V]) error {
	_, level := sl.GetMaxStats()
	rows := make([][]string, level+1)
	for i := range rows {
		rows[i] = []string{fmt.Sprintf("level %d", i)}
	}

	head := sl.GetHead()
	if head != nil {
		for node := head.GetNextAt(0); node != nil; node = node.GetNextAt(0) {
			for i := range rows {
				if i <= node.GetLevel() {
					rows[i] = append(rows[i], fmt.Sprintf("%v", node.GetKey()))
				} else {
					rows[i] = append(rows[i], "")
				}
			}
		}
	}

	for i := len(rows) - 1; i >= 0; i-- {
		if err := writer.Write(rows[i]); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func (mp StepMap[K]) Print(w io.Writer) {
	keys := make([]K, 0, len(mp))
	for k := range mp {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i] < keys[j]
	})

	for _, k := range keys {
		fmt.Fprintf(w, "%4v  ", k)
	}
	fmt.Fprintln(w)
	for _, k := range keys {
		fmt.Fprintf(w, "%4d  ", mp[k])
	}
	fmt.Fprintln(w)
}
