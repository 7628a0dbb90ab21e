// Package cache memoizes assistant replies per user and message so repeat
// questions skip the provider entirely. Entries have no TTL and are served
// verbatim even after the model or prompt changes; the trade is repeat-question
// latency and quota savings against freshness.
package cache

import (
	"log"
	"strings"
	"unicode/utf8"

	"chatrelay/internal/store"
)

const storeName = "cache"

// maxKeyLen bounds cache key cardinality. Distinct long messages can collide
// once truncated; that matches the stored behavior and stays until the
// truncation question is settled.
const maxKeyLen = 100

type Cache struct {
	store *store.Store
}

func New(s *store.Store) *Cache {
	return &Cache{store: s}
}

func Key(userID, message string) string {
	k := userID + ":" + strings.ToLower(message)
	if len(k) <= maxKeyLen {
		return k
	}
	// cut on a rune boundary: a split rune would not survive the JSON
	// round trip through the store and the key would never match again
	cut := maxKeyLen
	for cut > 0 && !utf8.RuneStart(k[cut]) {
		cut--
	}
	return k[:cut]
}

func (c *Cache) Get(userID, message string) (string, bool) {
	var entries map[string]string
	if err := c.store.Do(storeName, func() error {
		entries = map[string]string{}
		c.store.Load(storeName, &entries)
		return nil
	}); err != nil {
		return "", false
	}
	reply, ok := entries[Key(userID, message)]
	return reply, ok
}

func (c *Cache) Put(userID, message, reply string) {
	err := c.store.Do(storeName, func() error {
		entries := map[string]string{}
		c.store.Load(storeName, &entries)
		entries[Key(userID, message)] = reply
		return c.store.Save(storeName, entries)
	})
	if err != nil {
		// losing a memo never blocks the reply
		log.Printf("cache write failed: %v", err)
	}
}
