// Package session keeps per-user conversation state in memory.
//
// The Store interface is deliberately narrow: Get, Put, CompareAndSwap and a
// per-key Lock that serializes turns from the same sender. MemoryStore bounds
// its size two ways: a background routine evicts entries idle longer than the
// configured timeout, and inserting past the capacity evicts the least
// recently active entry. State does not survive a restart.
package session
