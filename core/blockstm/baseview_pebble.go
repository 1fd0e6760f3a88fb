package blockstm

import (
	"context"
	"fmt"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/cockroachdb/pebble"
	lru "github.com/hashicorp/golang-lru"
)

// PebbleBaseView is the default production BaseView: a snapshot of an
// on-disk pebble database taken once at construction, so every worker in
// the batch sees a single consistent pre-batch baseline no matter how long
// the batch runs, fronted by two cache tiers -- an LRU object cache keyed
// by Key and a byte cache keyed by the raw key bytes, both holding copies
// of the raw snapshot value (no decoding is done) -- so a
// key read by many transactions in one batch only touches the snapshot
// once.
type PebbleBaseView struct {
	snap  *pebble.Snapshot
	bytes *fastcache.Cache
	decoded *lru.Cache
}

// NewPebbleBaseView opens a snapshot over db and wraps it with the two
// cache tiers. decodedCacheSize is the number of entries kept in the
// object cache; byteCacheBytes is the capacity, in bytes, of the raw-read
// cache.
func NewPebbleBaseView(db *pebble.DB, decodedCacheSize int, byteCacheBytes int) (*PebbleBaseView, error) {
	decoded, err := lru.New(decodedCacheSize)
	if err != nil {
		return nil, fmt.Errorf("blockstm: building base view decode cache: %w", err)
	}

	return &PebbleBaseView{
		snap:    db.NewSnapshot(),
		bytes:   fastcache.New(byteCacheBytes),
		decoded: decoded,
	}, nil
}

// GetStateValue implements BaseView.
func (v *PebbleBaseView) GetStateValue(_ context.Context, key Key) ([]byte, error) {
	raw := key.raw[:]

	if cached, ok := v.decoded.Get(key); ok {
		b, _ := cached.([]byte)
		return b, nil
	}

	if b, ok := v.bytes.HasGet(nil, raw); ok {
		cp := append([]byte(nil), b...)
		v.decoded.Add(key, cp)

		return cp, nil
	}

	val, closer, err := v.snap.Get(raw)
	if err == pebble.ErrNotFound {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("blockstm: base view read failed: %w", err)
	}

	cp := append([]byte(nil), val...)
	_ = closer.Close()

	v.bytes.Set(raw, cp)
	v.decoded.Add(key, cp)

	return cp, nil
}

// Close releases the underlying snapshot.
func (v *PebbleBaseView) Close() error {
	return v.snap.Close()
}
