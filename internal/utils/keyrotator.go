package utils

import (
	"fmt"
	"sync"
	"time"
)

// KeyRotator cycles through a pool of API keys, skipping keys that have been
// marked as exhausted. Exhausted keys become eligible again after the cooldown
// so daily quota resets are picked up without a restart.
type KeyRotator struct {
	keys      []string
	exhausted map[int]time.Time
	cooldown  time.Duration
	next      int
	mu        sync.Mutex
}

type KeyStats struct {
	TotalKeys     int `json:"total_keys"`
	ExhaustedKeys int `json:"exhausted_keys"`
}

func NewKeyRotator(keys []string, cooldown time.Duration) (*KeyRotator, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("key rotator requires at least one key")
	}
	if cooldown <= 0 {
		cooldown = time.Hour
	}
	return &KeyRotator{
		keys:      keys,
		exhausted: make(map[int]time.Time),
		cooldown:  cooldown,
	}, nil
}

// GetNextKey returns the next usable key and its index.
func (r *KeyRotator) GetNextKey() (string, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for i := 0; i < len(r.keys); i++ {
		idx := (r.next + i) % len(r.keys)
		if until, ok := r.exhausted[idx]; ok {
			if now.Before(until) {
				continue
			}
			delete(r.exhausted, idx)
		}
		r.next = (idx + 1) % len(r.keys)
		return r.keys[idx], idx, nil
	}

	return "", -1, fmt.Errorf("all %d API keys are exhausted", len(r.keys))
}

// MarkKeyAsExhausted removes a key from rotation for the cooldown period.
func (r *KeyRotator) MarkKeyAsExhausted(index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if index < 0 || index >= len(r.keys) {
		return fmt.Errorf("key index %d out of range", index)
	}
	r.exhausted[index] = time.Now().Add(r.cooldown)
	return nil
}

func (r *KeyRotator) GetTotalKeys() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keys)
}

func (r *KeyRotator) GetAllStats() (KeyStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	active := 0
	now := time.Now()
	for idx := range r.keys {
		if until, ok := r.exhausted[idx]; ok && now.Before(until) {
			continue
		}
		active++
	}
	return KeyStats{
		TotalKeys:     len(r.keys),
		ExhaustedKeys: len(r.keys) - active,
	}, nil
}
