// Package util contains internal helpers (hashing, segment routing, padding).
//
//revive:disable:var-naming  // allow 'util' as an internal helpers package name
package util

import (
	"encoding/binary"
	"fmt"
	"reflect"

	"github.com/cespare/xxhash/v2"
)

// Hash64 hashes common key types with 64-bit xxhash.
// Supported: string, []byte, [16|32]byte, bool, all int/uint widths, uintptr,
// fmt.Stringer, and named types whose underlying type is one of the scalars.
// The result is deterministic for identical keys across calls and processes.
// Other key types panic; convert them to string or pass Options.Hash.
func Hash64[K comparable](k K) uint64 {
	switch v := any(k).(type) {
	case string:
		return xxhash.Sum64String(v)
	case []byte:
		return xxhash.Sum64(v)
	case [16]byte:
		return xxhash.Sum64(v[:])
	case [32]byte:
		return xxhash.Sum64(v[:])

	case uint8:
		return hashUint64(uint64(v))
	case uint16:
		return hashUint64(uint64(v))
	case uint32:
		return hashUint64(uint64(v))
	case uint64:
		return hashUint64(v)
	case uint:
		return hashUint64(uint64(v))
	case uintptr:
		return hashUint64(uint64(v))
	case int8:
		return hashUint64(uint64(uint8(v)))
	case int16:
		return hashUint64(uint64(uint16(v)))
	case int32:
		return hashUint64(uint64(uint32(v)))
	case int64:
		return hashUint64(uint64(v))
	case int:
		return hashUint64(uint64(v))

	case bool:
		if v {
			return hashUint64(1)
		}
		return hashUint64(0)

	case fmt.Stringer:
		return xxhash.Sum64String(v.String())
	}

	// Named types over a basic kind (type UserID string, type Level int8).
	rv := reflect.ValueOf(k)
	switch rv.Kind() {
	case reflect.String:
		return xxhash.Sum64String(rv.String())
	case reflect.Int8:
		return hashUint64(uint64(uint8(rv.Int())))
	case reflect.Int16:
		return hashUint64(uint64(uint16(rv.Int())))
	case reflect.Int32:
		return hashUint64(uint64(uint32(rv.Int())))
	case reflect.Int, reflect.Int64:
		return hashUint64(uint64(rv.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return hashUint64(rv.Uint())
	case reflect.Bool:
		return Hash64(rv.Bool())
	}
	panic(fmt.Sprintf("util.Hash64: unsupported key type %T; convert key to string or provide a custom hasher", k))
}

// CanHash reports whether Hash64 supports every value of K. Interface key
// types are rejected: their dynamic types are only known per value.
func CanHash[K comparable]() bool {
	t := reflect.TypeOf((*K)(nil)).Elem()
	if t.Kind() == reflect.Interface {
		return false
	}
	if t.Implements(reflect.TypeOf((*fmt.Stringer)(nil)).Elem()) {
		return true
	}
	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	case reflect.Array:
		return t.Elem().Kind() == reflect.Uint8 && (t.Len() == 16 || t.Len() == 32) && t.Name() == ""
	}
	return false
}

func hashUint64(u uint64) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], u)
	return xxhash.Sum64(b[:])
}
