package translator

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Cache 已通过校验的翻译映射缓存，按批次内容、目标语言和模型区分
type Cache struct {
	dir      string
	mutex    sync.RWMutex
	disabled bool // 禁用时只跳过读取
}

// NewCache 创建缓存
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

// DisableCache 禁用缓存读取（用于强制重新翻译），新结果仍会写入
func (c *Cache) DisableCache() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.disabled = true
}

// EnableCache 启用缓存
func (c *Cache) EnableCache() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.disabled = false
}

// Get 获取缓存的映射
func (c *Cache) Get(key string) (TranslationMapping, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if c.disabled {
		return nil, false
	}

	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}

	var m TranslationMapping
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, false
	}
	return m, true
}

// Set 写入映射，不受 DisableCache 影响
func (c *Cache) Set(key string, m TranslationMapping) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("编码缓存失败: %w", err)
	}
	return os.WriteFile(c.path(key), data, 0644)
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, c.hashKey(key)+".json")
}

// hashKey 计算缓存键的哈希
func (c *Cache) hashKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// CacheKey 生成缓存键
func CacheKey(batch FragmentBatch, targetLanguage, model string) string {
	data := map[string]any{
		"batch":          []string(batch),
		"targetLanguage": targetLanguage,
		"model":          model,
	}
	jsonData, _ := json.Marshal(data)
	return string(jsonData)
}
