//go:build !deadlock

// Package syncutils swaps the accumulator locks for go-deadlock when built with
// the deadlock tag.
package syncutils

import "sync"

type Mutex = sync.Mutex
type RWMutex = sync.RWMutex
