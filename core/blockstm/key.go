package blockstm

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Key is an opaque, totally ordered, hashable identifier of a storage cell.
// It wraps whatever address/subpath/state-slot scheme the VM uses into a
// single comparable value so the rest of the package never has to know
// about the shape of the underlying identifier.
type Key struct {
	raw        [32]byte
	modulePath bool
}

// NewAddressKey builds a Key identifying the top level account at addr.
func NewAddressKey(addr common.Address) Key {
	return Key{raw: crypto.Keccak256Hash(addr.Bytes()), modulePath: false}
}

// NewStateKey builds a Key identifying a single storage slot of addr.
func NewStateKey(addr common.Address, slot common.Hash) Key {
	buf := make([]byte, 0, common.AddressLength+common.HashLength)
	buf = append(buf, addr.Bytes()...)
	buf = append(buf, slot.Bytes()...)

	return Key{raw: crypto.Keccak256Hash(buf), modulePath: false}
}

// NewSubpathKey builds a Key for an auxiliary sub-resource of addr (e.g. a
// nonce, a balance, or a module under addr). subpath disambiguates between
// the different sub-resources of the same address. Sub-paths carrying
// module semantics should be routed through NewModuleKey instead, so the
// executor can place them in the module partition.
func NewSubpathKey(addr common.Address, subpath int) Key {
	buf := make([]byte, 0, common.AddressLength+1)
	buf = append(buf, addr.Bytes()...)
	buf = append(buf, byte(subpath))

	return Key{raw: crypto.Keccak256Hash(buf), modulePath: false}
}

// NewModuleKey builds a Key for a module-path resource. The hint routes the
// key through the MVS's dedicated module partition to avoid false sharing
// with regular storage cells; it never changes the key's identity.
func NewModuleKey(addr common.Address, subpath int) Key {
	k := NewSubpathKey(addr, subpath)
	k.modulePath = true

	return k
}

// IsModulePath reports whether the key carries the module-path routing hint.
func (k Key) IsModulePath() bool {
	return k.modulePath
}

// Less gives Key a total order, independent of the routing hint.
func (k Key) Less(o Key) bool {
	return bytes.Compare(k.raw[:], o.raw[:]) < 0
}

// shardIndex returns the shard owning k for a table with 2^bits shards.
func (k Key) shardIndex(bits uint) int {
	return int(k.raw[0]) & ((1 << bits) - 1)
}
