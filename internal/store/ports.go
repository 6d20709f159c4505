// Package store holds the small key-value state shared by concurrently active
// users: session states and assistant thread handles.
package store

import "context"

// KV is a string key-value store. Implementations must be safe for concurrent
// use and must not serialise unrelated keys behind one lock.
type KV interface {
	// Get returns the value and true, or "" and false when the key is absent.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Delete is a no-op for absent keys.
	Delete(ctx context.Context, key string) error
}

type namespaced struct {
	kv     KV
	prefix string
}

// Namespace returns a view of kv whose keys are prefixed with "<name>:".
func Namespace(kv KV, name string) KV {
	return &namespaced{kv: kv, prefix: name + ":"}
}

func (n *namespaced) Get(ctx context.Context, key string) (string, bool, error) {
	return n.kv.Get(ctx, n.prefix+key)
}

func (n *namespaced) Set(ctx context.Context, key, value string) error {
	return n.kv.Set(ctx, n.prefix+key, value)
}

func (n *namespaced) Delete(ctx context.Context, key string) error {
	return n.kv.Delete(ctx, n.prefix+key)
}
