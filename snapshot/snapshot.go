// Package snapshot 以純文字讀寫整份資料的快照，每行一筆 "key<分隔符>value"，依 key 升冪排列。
//
// 沒有檔頭、筆數或跳脫字元：key 含有分隔符時，重新載入會在第一個分隔符處切開。
package snapshot

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/Hakuto4838/SkipKV.git/skiplist"
)

// DefaultDelimiter 每行 key 與 value 之間的分隔符
const DefaultDelimiter = ":"

// readBufferSize 只是讀取緩衝區大小，單行長度沒有上限
const readBufferSize = 64 * 1024

// Codec 負責快照行的編碼與解碼
type Codec struct {
	Delimiter string
	Logger    *slog.Logger
}

// Stats 一次解碼的統計
type Stats struct {
	Records   int // 交給 callback 的正確紀錄
	Malformed int // 因格式錯誤而略過的行
}

func (c Codec) delimiter() string {
	if c.Delimiter == "" {
		return DefaultDelimiter
	}
	return c.Delimiter
}

func (c Codec) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// ParseLine 在第一個分隔符處切開 line；沒有分隔符或 key、value 為空時回傳 ErrMalformedRecord
func (c Codec) ParseLine(line string) (key, value string, err error) {
	d := c.delimiter()
	idx := strings.Index(line, d)
	if idx < 0 {
		return "", "", fmt.Errorf("line %q: no delimiter %q: %w", line, d, skiplist.ErrMalformedRecord)
	}
	key, value = line[:idx], line[idx+len(d):]
	if key == "" || value == "" {
		return "", "", fmt.Errorf("line %q: empty key or value: %w", line, skiplist.ErrMalformedRecord)
	}
	return key, value, nil
}

// Encode 依給定順序寫出 pairs
func (c Codec) Encode(w io.Writer, pairs []skiplist.Pair[string, string]) error {
	d := c.delimiter()
	bw := bufio.NewWriter(w)
	for _, p := range pairs {
		if strings.Contains(p.Key, d) {
			c.logger().Warn("snapshot: key contains delimiter and will not reload intact", "key", p.Key, "delimiter", d)
		}
		if _, err := bw.WriteString(p.Key + d + p.Value + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Decode 對 r 的每一行正確紀錄呼叫 fn；格式錯誤的行記錄 log 後略過，只有讀取錯誤會回傳
func (c Codec) Decode(r io.Reader, fn func(key, value string)) (Stats, error) {
	var stats Stats
	br := bufio.NewReaderSize(r, readBufferSize)

	for lineNo := 1; ; lineNo++ {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return stats, fmt.Errorf("snapshot: read line %d: %w", lineNo, err)
		}
		if line == "" && err != nil {
			return stats, nil
		}

		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")
		key, value, perr := c.ParseLine(line)
		if perr != nil {
			stats.Malformed++
			c.logger().Warn("snapshot: skipping malformed record", "line", lineNo, "error", perr)
		} else {
			stats.Records++
			fn(key, value)
		}

		// 檔尾沒有換行的最後一行
		if err != nil {
			return stats, nil
		}
	}
}

// Save 以 pairs 取代 path 的內容：先寫入同目錄的暫存檔並 fsync，再 rename 蓋過 path
func Save(path string, c Codec, pairs []skiplist.Pair[string, string]) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("snapshot: create dir: %w", err)
	}

	tmpPath := filepath.Join(dir, "."+filepath.Base(path)+".tmp-"+uuid.NewString())
	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("snapshot: create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = file.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err = c.Encode(file, pairs); err != nil {
		return fmt.Errorf("snapshot: write %s: %w", tmpPath, err)
	}
	if err = file.Sync(); err != nil {
		return fmt.Errorf("snapshot: sync %s: %w", tmpPath, err)
	}
	if err = file.Close(); err != nil {
		return fmt.Errorf("snapshot: close %s: %w", tmpPath, err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("snapshot: replace %s: %w", path, err)
	}

	c.logger().Info("snapshot: saved", "path", path, "records", len(pairs))
	return nil
}

// Load 解碼 path 的快照；檔案不存在時回傳的錯誤符合 fs.ErrNotExist
func Load(path string, c Codec, fn func(key, value string)) (Stats, error) {
	file, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("snapshot: open %s: %w", path, err)
	}
	defer file.Close()

	stats, err := c.Decode(file, fn)
	if err != nil {
		return stats, err
	}
	c.logger().Info("snapshot: loaded", "path", path, "records", stats.Records, "malformed", stats.Malformed)
	return stats, nil
}

// IsNotExist 判斷 err 是否因為快照檔還不存在
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
