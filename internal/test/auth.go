package test

import (
	"errors"

	pkgAuth "github.com/polkiloo/pixstore/internal/pkg/auth"
)

// HasherStub provides deterministic key hashing for tests.
type HasherStub struct {
	HashFn    func(string) (string, error)
	CompareFn func(string, string) error
}

// Hash returns a predictable hash for the supplied key.
func (h HasherStub) Hash(key string) (string, error) {
	if h.HashFn != nil {
		return h.HashFn(key)
	}
	return "hash:" + key, nil
}

// Compare validates key against stored hash.
func (h HasherStub) Compare(hash string, key string) error {
	if h.CompareFn != nil {
		return h.CompareFn(hash, key)
	}
	if hash != "hash:"+key {
		return errors.New("mismatch")
	}
	return nil
}

var _ pkgAuth.KeyHasher = HasherStub{}
