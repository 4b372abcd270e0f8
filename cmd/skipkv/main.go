package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/facette/natsort"

	"github.com/Hakuto4838/SkipKV.git/config"
	"github.com/Hakuto4838/SkipKV.git/skiplist"
	"github.com/Hakuto4838/SkipKV.git/snapshot"
	"github.com/Hakuto4838/SkipKV.git/store"
)

func main() {
	var confPath string
	var snapshotPath string
	var natural bool
	var restoreFirst bool

	flag.StringVar(&confPath, "config", "", "YAML config for both stores (defaults when empty)")
	flag.StringVar(&snapshotPath, "snapshot", "", "override snapshot_path from the config")
	flag.BoolVar(&natural, "natural", false, "also print keys in natural order")
	flag.BoolVar(&restoreFirst, "restore", false, "load an existing snapshot into the first store before inserting")
	flag.Parse()

	cfg, err := config.Load(confPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if snapshotPath != "" {
		cfg.SnapshotPath = snapshotPath
	}
	slog.SetDefault(cfg.NewLogger(os.Stderr))

	cfg2 := cfg
	cfg2.Name = cfg.Name + "-2"
	s1, err := store.New(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	s2, err := store.New(cfg2)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if restoreFirst {
		found, err := restore(s1)
		if err != nil {
			log.Fatalf("%s restore: %v", s1.Name(), err)
		}
		if !found {
			fmt.Printf("%s: no snapshot at %s yet, starting empty\n", s1.Name(), cfg.SnapshotPath)
		}
	}

	insert(s1, "1", "a")
	insert(s1, "1", "a")
	insert(s1, "3", "b")
	insert(s1, "7", "c")
	insert(s1, "8", "sun")
	insert(s1, "9", "xiu")
	insert(s1, "19", "yang")

	if err := s1.Dump(); err != nil {
		log.Fatalf("dump: %v", err)
	}
	load(s2)
	load(s1)

	fmt.Printf("%s size: %d\n", s1.Name(), s1.Size())
	s1.Display(os.Stdout)
	fmt.Printf("%s size: %d\n", s2.Name(), s2.Size())
	s2.Display(os.Stdout)

	if natural {
		printOrders(s1.Export())
	}
}

func insert(s *store.Store, key, value string) {
	err := s.Insert(key, value)
	switch {
	case err == nil:
		fmt.Printf("Successfully inserted key:%s, value:%s\n", key, value)
	case errors.Is(err, skiplist.ErrDuplicateKey):
		fmt.Printf("key: %s, exists\n", key)
	default:
		log.Fatalf("insert %s: %v", key, err)
	}
}

func load(s *store.Store) {
	res, err := s.Load()
	if err != nil {
		log.Fatalf("%s load: %v", s.Name(), err)
	}
	fmt.Printf("%s loaded: %d inserted, %d duplicates, %d malformed\n",
		s.Name(), res.Inserted, res.Duplicates, res.Malformed)
}

// restore 載入既有的快照；第一次執行還沒有快照檔時回傳 false
func restore(s *store.Store) (bool, error) {
	res, err := s.Load()
	if snapshot.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	fmt.Printf("%s restored: %d inserted, %d malformed\n", s.Name(), res.Inserted, res.Malformed)
	return true, nil
}

// printOrders 比較 byte 字典序（索引本身的順序）與自然排序
func printOrders(pairs []skiplist.Pair[string, string]) {
	keys := make([]string, len(pairs))
	for i, p := range pairs {
		keys[i] = p.Key
	}
	fmt.Println("lexicographic:", strings.Join(keys, " "))

	natKeys := append([]string(nil), keys...)
	natsort.Sort(natKeys)
	fmt.Println("natural:      ", strings.Join(natKeys, " "))
}
