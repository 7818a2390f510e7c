// Package cache provides the bounded read-through payload cache that sits
// between the dispatch path and the storage service. It exists so that
// re-deliveries of the same task, and tasks sharing a submission, do not hit
// the origin again. Memory stays bounded via LRU eviction; an evicted entry
// is simply refetched on next use.
package cache
