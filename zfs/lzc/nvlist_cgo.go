//go:build cgo && libzfs_core

package lzc

/*
#cgo CFLAGS: -I /usr/include/libzfs -I /usr/include/libspl -DHAVE_IOCTL_IN_SYS_IOCTL_H
#cgo LDFLAGS: -lnvpair

#include <stdlib.h>
#include <libnvpair.h>

static void add_string_array(nvlist_t *nvl, const char *name, char **values, uint_t n) {
	fnvlist_add_string_array(nvl, name, (void *)values, n);
}
*/
import "C"

import (
	"fmt"
	"syscall"
	"unsafe"
)

// Every nvlist returned by these helpers is owned by the caller
// and must be released with C.fnvlist_free.

func stringMapNVList(m map[string]string) *C.nvlist_t {
	l := C.fnvlist_alloc()
	for k, v := range m {
		ck, cv := C.CString(k), C.CString(v)
		C.fnvlist_add_string(l, ck, cv)
		C.free(unsafe.Pointer(ck))
		C.free(unsafe.Pointer(cv))
	}
	return l
}

// booleanSetNVList builds the name-only nvlist libzfs_core uses for sets.
func booleanSetNVList(names []string) *C.nvlist_t {
	l := C.fnvlist_alloc()
	for _, n := range names {
		cn := C.CString(n)
		C.fnvlist_add_boolean(l, cn)
		C.free(unsafe.Pointer(cn))
	}
	return l
}

func nestedSetNVList(m map[string][]string) *C.nvlist_t {
	l := C.fnvlist_alloc()
	for k, names := range m {
		inner := booleanSetNVList(names)
		ck := C.CString(k)
		C.fnvlist_add_nvlist(l, ck, inner) // copies inner
		C.free(unsafe.Pointer(ck))
		C.fnvlist_free(inner)
	}
	return l
}

func argvNVList(argv []string) *C.nvlist_t {
	l := C.fnvlist_alloc()
	n := len(argv)
	buf := C.malloc(C.size_t(n+1) * C.size_t(unsafe.Sizeof(uintptr(0))))
	defer C.free(buf)
	cargv := unsafe.Slice((**C.char)(buf), n+1)
	for i, a := range argv {
		cargv[i] = C.CString(a)
	}
	cargv[n] = nil
	name := C.CString("argv")
	C.add_string_array(l, name, (**C.char)(buf), C.uint_t(n))
	C.free(unsafe.Pointer(name))
	for i := 0; i < n; i++ {
		C.free(unsafe.Pointer(cargv[i]))
	}
	return l
}

// errlistFromNVList consumes l.
func errlistFromNVList(l *C.nvlist_t) map[string]syscall.Errno {
	if l == nil {
		return nil
	}
	defer C.fnvlist_free(l)
	ret := make(map[string]syscall.Errno)
	for p := C.nvlist_next_nvpair(l, nil); p != nil; p = C.nvlist_next_nvpair(l, p) {
		if C.nvpair_type(p) != C.DATA_TYPE_INT32 {
			continue
		}
		ret[C.GoString(C.nvpair_name(p))] = syscall.Errno(C.fnvpair_value_int32(p))
	}
	return ret
}

func uint64MapFromNVList(l *C.nvlist_t) map[string]uint64 {
	ret := make(map[string]uint64)
	for p := C.nvlist_next_nvpair(l, nil); p != nil; p = C.nvlist_next_nvpair(l, p) {
		if C.nvpair_type(p) != C.DATA_TYPE_UINT64 {
			continue
		}
		ret[C.GoString(C.nvpair_name(p))] = uint64(C.fnvpair_value_uint64(p))
	}
	return ret
}

// bookmarksFromNVList decodes
//
//	{ <bookmark>: { <prop>: { "value": uint64 } } }
func bookmarksFromNVList(l *C.nvlist_t) map[string]BookmarkProps {
	ret := make(map[string]BookmarkProps)
	value := C.CString("value")
	defer C.free(unsafe.Pointer(value))
	for p := C.nvlist_next_nvpair(l, nil); p != nil; p = C.nvlist_next_nvpair(l, p) {
		props := make(BookmarkProps)
		if C.nvpair_type(p) == C.DATA_TYPE_NVLIST {
			inner := C.fnvpair_value_nvlist(p)
			for q := C.nvlist_next_nvpair(inner, nil); q != nil; q = C.nvlist_next_nvpair(inner, q) {
				if C.nvpair_type(q) != C.DATA_TYPE_NVLIST {
					continue
				}
				var v C.uint64_t
				if C.nvlist_lookup_uint64(C.fnvpair_value_nvlist(q), value, &v) == 0 {
					props[C.GoString(C.nvpair_name(q))] = uint64(v)
				}
			}
		}
		ret[C.GoString(C.nvpair_name(p))] = props
	}
	return ret
}

// nvlistToMap converts the value types channel programs can return.
func nvlistToMap(l *C.nvlist_t) map[string]interface{} {
	ret := make(map[string]interface{})
	for p := C.nvlist_next_nvpair(l, nil); p != nil; p = C.nvlist_next_nvpair(l, p) {
		name := C.GoString(C.nvpair_name(p))
		switch t := C.nvpair_type(p); t {
		case C.DATA_TYPE_BOOLEAN:
			ret[name] = true
		case C.DATA_TYPE_BOOLEAN_VALUE:
			ret[name] = C.fnvpair_value_boolean_value(p) != C.B_FALSE
		case C.DATA_TYPE_STRING:
			ret[name] = C.GoString(C.fnvpair_value_string(p))
		case C.DATA_TYPE_INT32:
			ret[name] = int32(C.fnvpair_value_int32(p))
		case C.DATA_TYPE_UINT32:
			ret[name] = uint32(C.fnvpair_value_uint32(p))
		case C.DATA_TYPE_INT64:
			ret[name] = int64(C.fnvpair_value_int64(p))
		case C.DATA_TYPE_UINT64:
			ret[name] = uint64(C.fnvpair_value_uint64(p))
		case C.DATA_TYPE_NVLIST:
			ret[name] = nvlistToMap(C.fnvpair_value_nvlist(p))
		default:
			ret[name] = fmt.Sprintf("<unsupported nvpair type %d>", int(t))
		}
	}
	return ret
}
