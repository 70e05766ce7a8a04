// Package cache is the response cache that sits in front of the language
// model call.
//
// A Cache maps an opaque key to the last result stored under it. Keys are
// namespaced with a prefix before they reach the Store so the cache can
// share a database with unrelated data. Entries expire lazily: Get treats
// an entry older than the TTL as absent but leaves it in the store, and
// the cache itself never deletes anything.
//
// Key derivation lives in key.go as a pure function over the request's
// defining parameters, so its determinism can be tested without a store.
//
// Backends live in subpackages (memory, sqlite, bolt, redis, postgres).
package cache
