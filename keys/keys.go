// keys/keys.go
// 统一的 Key 定义包，供 db 与 txqueue 共同使用
package keys

import (
	"fmt"
	"strconv"
	"strings"
)

// ===================== 版本控制 =====================
// 全局 Key 版本前缀（"v1" → 产出 "v1_<key>"）。
const KeyVersion = "v1"

// withVer 把版本号拼到最前面（保持下划线风格：v1_<...>）
func withVer(s string) string {
	if KeyVersion == "" {
		return s
	}
	return KeyVersion + "_" + s
}

// StripVersion 把带版本的键去掉版本前缀
func StripVersion(prefixed string) string {
	if KeyVersion == "" {
		return prefixed
	}
	return strings.TrimPrefix(prefixed, KeyVersion+"_")
}

// padUint 固定 20 位，保证按字典序遍历即按数值递增
func padUint(n uint64) string {
	return fmt.Sprintf("%020d", n)
}

// ===================== 待解密队列 =====================

// KeyTxQueue 待解密队列条目
// 例：v1_txqueue_00000000000000000042
func KeyTxQueue(seq uint64) string {
	return withVer("txqueue_" + padUint(seq))
}

// KeyTxQueuePrefix 队列条目前缀，用于前缀遍历
func KeyTxQueuePrefix() string {
	return withVer("txqueue_")
}

// KeyTxQueueSeq 队列序号发号器
// 例：v1_meta_txqueue_seq
func KeyTxQueueSeq() string {
	return withVer("meta_txqueue_seq")
}

// KeyTxQueueHeight 队列最近一次入队所在的区块高度
// 例：v1_meta_txqueue_height
func KeyTxQueueHeight() string {
	return withVer("meta_txqueue_height")
}

// ParseTxQueueSeq 从队列 key 中解析序号
func ParseTxQueueSeq(key string) (uint64, error) {
	p := KeyTxQueuePrefix()
	if !strings.HasPrefix(key, p) {
		return 0, fmt.Errorf("not a txqueue key: %q", key)
	}
	return strconv.ParseUint(key[len(p):], 10, 64)
}
