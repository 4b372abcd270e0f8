package skiplist

import "errors"

var (
	// ErrDuplicateKey 插入已存在的 key，狀態不變
	ErrDuplicateKey = errors.New("key already exists")
	// ErrKeyNotFound 刪除、更新或查詢不存在的 key
	ErrKeyNotFound = errors.New("key not found")
	// ErrMalformedRecord 快照中無法解析的行
	ErrMalformedRecord = errors.New("malformed record")
	// ErrInvalidMaxLevel 最高層級必須 >= 0
	ErrInvalidMaxLevel = errors.New("invalid max level")
)
