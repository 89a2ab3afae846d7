// Package keyspace lays out tables on engines that only offer a single flat, ordered keyspace.
//
// Layout:
//
//	0x00 | table name          -> table id (uint32, big endian)
//	0x01 | table id | user key -> value
//
// Table ids are allocated once and never reused, so the data of a table is exactly the
// key range [DataPrefix(id), UpperBound(DataPrefix(id))).
package keyspace

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/puzpuzpuz/xsync/v3"
)

const (
	registryPrefix byte = 0x00
	dataPrefix     byte = 0x01

	idLen         = 4
	dataHeaderLen = 1 + idLen
)

// TableKey returns the registry key of a table.
func TableKey(name string) []byte {
	k := make([]byte, 1+len(name))
	k[0] = registryPrefix
	copy(k[1:], name)
	return k
}

// TableName extracts the table name from a registry key.
func TableName(key []byte) string {
	return string(key[1:])
}

// RegistryPrefix returns the prefix shared by all registry keys.
func RegistryPrefix() []byte {
	return []byte{registryPrefix}
}

// EncodeID encodes a table id as registry value.
func EncodeID(id uint32) []byte {
	b := make([]byte, idLen)
	binary.BigEndian.PutUint32(b, id)
	return b
}

// DecodeID decodes a registry value.
func DecodeID(b []byte) (uint32, error) {
	if len(b) != idLen {
		return 0, fmt.Errorf("keyspace: invalid table id length %d", len(b))
	}
	return binary.BigEndian.Uint32(b), nil
}

// DataPrefix returns the prefix shared by all data keys of a table.
func DataPrefix(id uint32) []byte {
	p := make([]byte, dataHeaderLen)
	p[0] = dataPrefix
	binary.BigEndian.PutUint32(p[1:], id)
	return p
}

// DataKey returns the engine key of a user key in a table.
func DataKey(id uint32, key []byte) []byte {
	k := make([]byte, dataHeaderLen+len(key))
	k[0] = dataPrefix
	binary.BigEndian.PutUint32(k[1:dataHeaderLen], id)
	copy(k[dataHeaderLen:], key)
	return k
}

// UserKey strips the table header from an engine key and returns a copy of the user key.
func UserKey(key []byte) []byte {
	out := make([]byte, len(key)-dataHeaderLen)
	copy(out, key[dataHeaderLen:])
	return out
}

// UpperBound returns the first key that does not start with prefix.
// It returns nil if no such key exists (prefix consists of 0xFF bytes only).
func UpperBound(prefix []byte) (limit []byte) {
	for i := len(prefix) - 1; i >= 0; i-- {
		c := prefix[i]
		if c == 0xFF {
			continue
		}
		limit = make([]byte, i+1)
		copy(limit, prefix)
		limit[i] = c + 1
		break
	}
	return limit
}

// --------------------------------------------------------------------------
// Registry cache
// --------------------------------------------------------------------------

// Registry caches table ids that are known to be committed.
// Tables are never dropped, so a cached id stays valid for the lifetime of the database.
type Registry struct {
	ids *xsync.MapOf[string, uint32]
}

// NewRegistry creates an empty cache.
func NewRegistry() *Registry {
	return &Registry{ids: xsync.NewMapOf[string, uint32]()}
}

// Lookup returns the cached id of a table.
func (r *Registry) Lookup(name string) (uint32, bool) {
	return r.ids.Load(name)
}

// Remember caches the id of a committed table.
func (r *Registry) Remember(name string, id uint32) {
	r.ids.Store(name, id)
}

// Range calls fn for every cached table until fn returns false.
func (r *Registry) Range(fn func(name string, id uint32) bool) {
	r.ids.Range(fn)
}

// Names returns all cached table names in ascending order.
func (r *Registry) Names() []string {
	names := make([]string, 0, r.ids.Size())
	r.ids.Range(func(name string, _ uint32) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}
