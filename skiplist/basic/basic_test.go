package basic

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"testing"

	"github.com/Hakuto4838/SkipKV.git/skiplist"
	"github.com/Hakuto4838/SkipKV.git/skiplist/analyTool"
)

func newTestList(t *testing.T, maxLevel int, opts ...Option) *BasicSkipList[string, string] {
	t.Helper()
	sl, err := NewBasicSkipList[string, string](maxLevel, opts...)
	if err != nil {
		t.Fatalf("NewBasicSkipList(%d) error: %v", maxLevel, err)
	}
	return sl
}

func checkStruct[K int | string, V any](t *testing.T, sl *BasicSkipList[K, V]) {
	t.Helper()
	var err error
	sl.Inspect(func(a skiplist.Analyable[K, V]) {
		err = analyTool.CheckStruct(a)
	})
	if err != nil {
		t.Fatalf("CheckStruct: %v", err)
	}
}

func keysOf(pairs []skiplist.Pair[string, string]) []string {
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.Key
	}
	return out
}

func TestBasicSkipListInterface(t *testing.T) {
	var _ skiplist.Index[string, string] = (*BasicSkipList[string, string])(nil)
	var _ skiplist.Index[int, float64] = (*BasicSkipList[int, float64])(nil)
	var _ skiplist.Nodelike[string, string] = (*basicNode[string, string])(nil)
}

func TestNewInvalidMaxLevel(t *testing.T) {
	if _, err := NewBasicSkipList[string, string](-1); !errors.Is(err, skiplist.ErrInvalidMaxLevel) {
		t.Fatalf("NewBasicSkipList(-1) error = %v, want ErrInvalidMaxLevel", err)
	}
}

func TestScenario(t *testing.T) {
	sl := newTestList(t, DefaultMaxLevel, WithSeed(42))

	if err := sl.Insert("1", "a"); err != nil {
		t.Fatalf("Insert(1) error: %v", err)
	}
	if err := sl.Insert("1", "a"); !errors.Is(err, skiplist.ErrDuplicateKey) {
		t.Fatalf("second Insert(1) error = %v, want ErrDuplicateKey", err)
	}
	for _, p := range [][2]string{{"3", "b"}, {"7", "c"}, {"8", "sun"}, {"9", "xiu"}, {"19", "yang"}} {
		if err := sl.Insert(p[0], p[1]); err != nil {
			t.Fatalf("Insert(%s) error: %v", p[0], err)
		}
	}

	if sl.Size() != 6 {
		t.Errorf("Size() = %d, want 6", sl.Size())
	}
	if v, err := sl.Find("1"); err != nil || v != "a" {
		t.Errorf("Find(1) = (%q, %v), want (a, nil)", v, err)
	}
	if _, err := sl.Find("18"); !errors.Is(err, skiplist.ErrKeyNotFound) {
		t.Errorf("Find(18) error = %v, want ErrKeyNotFound", err)
	}

	// string 以字典序比較，"19" 排在 "3" 之前
	want := []skiplist.Pair[string, string]{
		{Key: "1", Value: "a"},
		{Key: "19", Value: "yang"},
		{Key: "3", Value: "b"},
		{Key: "7", Value: "c"},
		{Key: "8", Value: "sun"},
		{Key: "9", Value: "xiu"},
	}
	got := sl.Export()
	if len(got) != len(want) {
		t.Fatalf("Export() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Export()[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if err := sl.Delete("3"); err != nil {
		t.Fatalf("Delete(3) error: %v", err)
	}
	if sl.Size() != 5 {
		t.Errorf("Size() after delete = %d, want 5", sl.Size())
	}
	if err := sl.Delete("3"); !errors.Is(err, skiplist.ErrKeyNotFound) {
		t.Fatalf("second Delete(3) error = %v, want ErrKeyNotFound", err)
	}
	if sl.Size() != 5 {
		t.Errorf("Size() after second delete = %d, want 5", sl.Size())
	}
	checkStruct(t, sl)
}

func TestDuplicateInsertKeepsFirstValue(t *testing.T) {
	sl := newTestList(t, 4, WithSeed(1))
	if err := sl.Insert("k", "first"); err != nil {
		t.Fatalf("Insert error: %v", err)
	}
	if err := sl.Insert("k", "second"); !errors.Is(err, skiplist.ErrDuplicateKey) {
		t.Fatalf("duplicate Insert error = %v, want ErrDuplicateKey", err)
	}
	if v, _ := sl.Find("k"); v != "first" {
		t.Errorf("Find(k) = %q, want first", v)
	}
	if sl.Size() != 1 {
		t.Errorf("Size() = %d, want 1", sl.Size())
	}
}

func TestUpdate(t *testing.T) {
	sl := newTestList(t, 4, WithSeed(1))
	if err := sl.Update("missing", "x"); !errors.Is(err, skiplist.ErrKeyNotFound) {
		t.Fatalf("Update(missing) error = %v, want ErrKeyNotFound", err)
	}
	if sl.Size() != 0 {
		t.Errorf("Size() = %d, want 0", sl.Size())
	}

	_ = sl.Insert("k", "v1")
	if err := sl.Update("k", "v2"); err != nil {
		t.Fatalf("Update(k) error: %v", err)
	}
	if v, _ := sl.Find("k"); v != "v2" {
		t.Errorf("Find(k) = %q, want v2", v)
	}
	if !sl.Contains("k") || sl.Contains("missing") {
		t.Error("Contains mismatch after Update")
	}
}

func TestScriptedLevels(t *testing.T) {
	// a: 0 層, b: 2 層, c: 1 層
	coin := skiplist.ScriptedCoin(false, true, true, false, true, false)
	sl := newTestList(t, 3, WithCoin(coin))

	_ = sl.Insert("a", "1")
	_ = sl.Insert("b", "2")
	_ = sl.Insert("c", "3")

	levels := map[string]int{}
	var top int
	sl.Inspect(func(a skiplist.Analyable[string, string]) {
		_, top = a.GetMaxStats()
		for n := a.GetHead().GetNextAt(0); n != nil; n = n.GetNextAt(0) {
			levels[n.GetKey()] = n.GetLevel()
		}
	})
	if top != 2 {
		t.Errorf("current level = %d, want 2", top)
	}
	want := map[string]int{"a": 0, "b": 2, "c": 1}
	for k, lv := range want {
		if levels[k] != lv {
			t.Errorf("level of %s = %d, want %d", k, levels[k], lv)
		}
	}
	checkStruct(t, sl)

	// 刪除最高的節點後層級下降
	if err := sl.Delete("b"); err != nil {
		t.Fatalf("Delete(b) error: %v", err)
	}
	sl.Inspect(func(a skiplist.Analyable[string, string]) {
		_, top = a.GetMaxStats()
	})
	if top != 1 {
		t.Errorf("current level after delete = %d, want 1", top)
	}
	checkStruct(t, sl)

	_ = sl.Delete("c")
	_ = sl.Delete("a")
	sl.Inspect(func(a skiplist.Analyable[string, string]) {
		_, top = a.GetMaxStats()
	})
	if top != 0 || sl.Size() != 0 {
		t.Errorf("empty list: level = %d, size = %d, want 0, 0", top, sl.Size())
	}
}

func TestLevelClampedToMax(t *testing.T) {
	always := skiplist.CoinFunc(func() bool { return true })
	sl := newTestList(t, 2, WithCoin(always))
	for i := 0; i < 5; i++ {
		_ = sl.Insert(strconv.Itoa(i), "v")
	}
	sl.Inspect(func(a skiplist.Analyable[string, string]) {
		_, top := a.GetMaxStats()
		if top != 2 {
			t.Errorf("current level = %d, want 2", top)
		}
		for n := a.GetHead().GetNextAt(0); n != nil; n = n.GetNextAt(0) {
			if n.GetLevel() != 2 {
				t.Errorf("node %s level = %d, want 2", n.GetKey(), n.GetLevel())
			}
		}
	})
	checkStruct(t, sl)
}

func TestSingleLevelList(t *testing.T) {
	always := skiplist.CoinFunc(func() bool {
		t.Fatal("coin must not be flipped when max level is 0")
		return true
	})
	sl := newTestList(t, 0, WithCoin(always))
	for _, k := range []string{"d", "b", "a", "c"} {
		if err := sl.Insert(k, k+k); err != nil {
			t.Fatalf("Insert(%s) error: %v", k, err)
		}
	}
	checkStruct(t, sl)

	got := keysOf(sl.Export())
	want := []string{"a", "b", "c", "d"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Export keys = %v, want %v", got, want)
		}
	}

	for _, k := range want {
		if err := sl.Delete(k); err != nil {
			t.Fatalf("Delete(%s) error: %v", k, err)
		}
		checkStruct(t, sl)
	}
	if sl.Size() != 0 {
		t.Errorf("Size() = %d, want 0", sl.Size())
	}
}

func TestRandomOpsAgainstMap(t *testing.T) {
	sl, err := NewBasicSkipList[int, int](12, WithSeed(7))
	if err != nil {
		t.Fatal(err)
	}
	model := map[int]int{}
	r := rand.New(rand.NewSource(99))

	for i := 0; i < 5000; i++ {
		key := r.Intn(500)
		switch r.Intn(4) {
		case 0, 1:
			_, exists := model[key]
			err := sl.Insert(key, i)
			if exists != errors.Is(err, skiplist.ErrDuplicateKey) {
				t.Fatalf("Insert(%d) error = %v, exists = %v", key, err, exists)
			}
			if !exists {
				model[key] = i
			}
		case 2:
			_, exists := model[key]
			err := sl.Delete(key)
			if exists != (err == nil) {
				t.Fatalf("Delete(%d) error = %v, exists = %v", key, err, exists)
			}
			delete(model, key)
		case 3:
			v, err := sl.Find(key)
			want, exists := model[key]
			if exists != (err == nil) || (exists && v != want) {
				t.Fatalf("Find(%d) = (%d, %v), want (%d, %v)", key, v, err, want, exists)
			}
		}
		if sl.Size() != len(model) {
			t.Fatalf("Size() = %d, want %d", sl.Size(), len(model))
		}
	}
	checkStruct(t, sl)

	prev := -1
	for _, p := range sl.Export() {
		if p.Key <= prev {
			t.Fatalf("Export not strictly increasing: %d after %d", p.Key, prev)
		}
		if model[p.Key] != p.Value {
			t.Fatalf("Export value of %d = %d, want %d", p.Key, p.Value, model[p.Key])
		}
		prev = p.Key
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	src := newTestList(t, DefaultMaxLevel, WithSeed(3))
	for i := 0; i < 200; i++ {
		_ = src.Insert(fmt.Sprintf("key-%03d", i), fmt.Sprintf("val-%d", i))
	}

	dst := newTestList(t, DefaultMaxLevel, WithSeed(4))
	inserted, dup := dst.Import(src.Export())
	if inserted != 200 || dup != 0 {
		t.Fatalf("Import() = (%d, %d), want (200, 0)", inserted, dup)
	}
	if dst.Size() != src.Size() {
		t.Fatalf("Size() = %d, want %d", dst.Size(), src.Size())
	}
	a, b := src.Export(), dst.Export()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("pair %d = %v, want %v", i, b[i], a[i])
		}
	}

	// 再匯入一次全部都是重複
	inserted, dup = dst.Import(a)
	if inserted != 0 || dup != 200 {
		t.Errorf("second Import() = (%d, %d), want (0, 200)", inserted, dup)
	}
	checkStruct(t, dst)
}

func TestClear(t *testing.T) {
	sl := newTestList(t, 5, WithSeed(5))
	for i := 0; i < 50; i++ {
		_ = sl.Insert(strconv.Itoa(i), "v")
	}
	sl.Clear()
	if sl.Size() != 0 || len(sl.Export()) != 0 {
		t.Fatalf("after Clear size = %d, export = %d", sl.Size(), len(sl.Export()))
	}
	checkStruct(t, sl)
	if err := sl.Insert("x", "y"); err != nil {
		t.Fatalf("Insert after Clear error: %v", err)
	}
	checkStruct(t, sl)
}

func TestFindStep(t *testing.T) {
	sl := newTestList(t, DefaultMaxLevel, WithSeed(11))
	for i := 0; i < 1000; i++ {
		_ = sl.Insert(fmt.Sprintf("%04d", i), "v")
	}
	sl.Inspect(func(a skiplist.Analyable[string, string]) {
		steps, perLevel := analyTool.FindStep(a, "0500")
		if steps <= 0 || steps > 200 {
			t.Errorf("FindStep steps = %d, expected logarithmic path", steps)
		}
		_, top := a.GetMaxStats()
		if len(perLevel) != top+1 {
			t.Errorf("len(perLevel) = %d, want %d", len(perLevel), top+1)
		}
	})
}

// 複雜的併發測試 - 混合讀寫操作
func TestConcurrentOperations(t *testing.T) {
	sl := newTestList(t, DefaultMaxLevel, WithSeed(42))
	const numGoroutines = 32
	const operationsPerGoroutine = 300
	const keyRange = 200

	var wg sync.WaitGroup
	for g := 0; g < numGoroutines; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(int64(id)))
			for j := 0; j < operationsPerGoroutine; j++ {
				key := strconv.Itoa(r.Intn(keyRange))
				switch r.Intn(5) {
				case 0, 1:
					_ = sl.Insert(key, "v")
				case 2:
					_ = sl.Delete(key)
				case 3:
					_ = sl.Update(key, strconv.Itoa(id))
				case 4:
					_, _ = sl.Find(key)
				}
			}
		}(g)
	}
	wg.Wait()

	checkStruct(t, sl)
	if got := len(sl.Export()); got != sl.Size() {
		t.Errorf("Export len = %d, Size() = %d", got, sl.Size())
	}
}
