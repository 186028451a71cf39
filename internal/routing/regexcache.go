package routing

import (
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"
)

// regexCacheSize bounds the compiled patterns shared across prefix
// builds. The same fragments recur in every prefix's build, so the
// working set stays close to the number of distinct route patterns.
const regexCacheSize = 512

// regexCache is a bounded LRU of compiled regular expressions.
type regexCache struct {
	lru *lru.Cache[string, *regexp.Regexp]
}

func newRegexCache(size int) *regexCache {
	if size <= 0 {
		size = regexCacheSize
	}
	cache, _ := lru.NewWithEvict[string, *regexp.Regexp](size,
		func(string, *regexp.Regexp) {
			getMetrics().regexEvictions.Inc()
		})
	return &regexCache{lru: cache}
}

// compile returns the compiled form of pattern, reusing a cached one
// when available.
func (c *regexCache) compile(pattern string) (*regexp.Regexp, error) {
	m := getMetrics()
	if re, ok := c.lru.Get(pattern); ok {
		m.regexHits.Inc()
		return re, nil
	}
	m.regexMisses.Inc()
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	c.lru.Add(pattern, re)
	m.regexSize.Set(float64(c.lru.Len()))
	return re, nil
}
