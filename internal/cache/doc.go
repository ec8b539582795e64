// Package cache provides an LRU cache for immutable byte blocks read from
// remote blob stores. Memory held by the cache is charged to a
// resource.Controller when one is supplied.
package cache
