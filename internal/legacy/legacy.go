// Package legacy describes the embedded key-value engine that stores are
// migrated away from. Platforms that never shipped the engine pass a nil
// Store wherever one is accepted.
package legacy

// LargeValueSentinel is what the engine hands back instead of a value it
// considers too large to return inline. The real value, if it survived,
// lives in the overflow cache directory.
const LargeValueSentinel = "!!LARGE_VALUE!!"

// Store is the capability the storage core needs from the legacy engine.
// Presence of a key is implied by ok=true from Get.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Remove(key string) error
	Keys() ([]string, error)
}
