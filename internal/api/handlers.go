package api

import (
	"github.com/heysubinoy/keyvaluestore/pkg/kv"
)

// Read authorizes token for reads and looks key up.
// It returns kv.ErrUnauthorized for a mismatched token and kv.ErrNotFound
// when the key has never been written.
func Read(store kv.Store, key, token string) (kv.Entry, error) {
	if !store.Authorized(kv.OpRead, token) {
		return kv.Entry{}, kv.ErrUnauthorized
	}
	entry, ok := store.Get(key)
	if !ok {
		return kv.Entry{}, kv.ErrNotFound
	}
	return entry, nil
}

// Write authorizes token for writes and stores body verbatim under key.
func Write(store kv.Store, key, token, body string) error {
	if !store.Authorized(kv.OpWrite, token) {
		return kv.ErrUnauthorized
	}
	store.Put(key, body)
	return nil
}
