package translator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	require.NoError(t, err)

	key := CacheKey(FragmentBatch{"Hello"}, "中文", "gpt-4o-mini")
	_, ok := cache.Get(key)
	assert.False(t, ok)

	require.NoError(t, cache.Set(key, TranslationMapping{"Hello": "你好"}))
	m, ok := cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, TranslationMapping{"Hello": "你好"}, m)

	cache.DisableCache()
	_, ok = cache.Get(key)
	assert.False(t, ok)

	require.NoError(t, cache.Set(key, TranslationMapping{"Hello": "您好"}), "禁用时仍然写入")

	cache.EnableCache()
	m, ok = cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, TranslationMapping{"Hello": "您好"}, m)
}

func TestCacheKeyDistinguishes(t *testing.T) {
	base := CacheKey(FragmentBatch{"Hello"}, "中文", "m")
	assert.NotEqual(t, base, CacheKey(FragmentBatch{"Hello"}, "English", "m"))
	assert.NotEqual(t, base, CacheKey(FragmentBatch{"Hello"}, "中文", "other"))
	assert.NotEqual(t, base, CacheKey(FragmentBatch{"Hello", "World"}, "中文", "m"))
	assert.Equal(t, base, CacheKey(FragmentBatch{"Hello"}, "中文", "m"))
}

func TestCovers(t *testing.T) {
	assert.True(t, covers(TranslationMapping{"A": "甲"}, FragmentBatch{"A"}))
	assert.False(t, covers(TranslationMapping{"A": "甲"}, FragmentBatch{"A", "B"}))
	assert.False(t, covers(TranslationMapping{"C": "丙"}, FragmentBatch{"A"}))
}
