//go:build cgo && libzfs_core

package lzc

/*
#cgo CFLAGS: -I /usr/include/libzfs -I /usr/include/libspl -DHAVE_IOCTL_IN_SYS_IOCTL_H
#cgo LDFLAGS: -lzfs_core -lnvpair

#include <stdlib.h>
#include <libzfs_core.h>
*/
import "C"

import (
	"sync"
	"unsafe"
)

type core struct {
	closeOnce sync.Once
}

var _ Core = &core{}

// Open takes a reference on the library. libzfs_core reference-counts
// initialization, so multiple Cores may be open at the same time.
func Open() (Core, error) {
	if errno := C.libzfs_core_init(); errno != 0 {
		return nil, newError("core_init", int(errno), nil)
	}
	return &core{}, nil
}

func (c *core) Close() {
	c.closeOnce.Do(func() { C.libzfs_core_fini() })
}

type cstrings []*C.char

func (cs *cstrings) str(s string) *C.char {
	p := C.CString(s)
	*cs = append(*cs, p)
	return p
}

// strOrNil maps the empty string to NULL.
func (cs *cstrings) strOrNil(s string) *C.char {
	if s == "" {
		return nil
	}
	return cs.str(s)
}

func (cs cstrings) free() {
	for _, p := range cs {
		C.free(unsafe.Pointer(p))
	}
}

func cbool(b bool) C.boolean_t {
	if b {
		return C.B_TRUE
	}
	return C.B_FALSE
}

func (c *core) Create(fsname string, typ DatasetType, props map[string]string) error {
	var cs cstrings
	defer cs.free()
	nvprops := stringMapNVList(props)
	defer C.fnvlist_free(nvprops)
	errno := C.lzc_create(cs.str(fsname), C.enum_lzc_dataset_type(typ), nvprops, nil, 0)
	return newError("create", int(errno), nil)
}

func (c *core) Clone(fsname, origin string, props map[string]string) error {
	var cs cstrings
	defer cs.free()
	nvprops := stringMapNVList(props)
	defer C.fnvlist_free(nvprops)
	errno := C.lzc_clone(cs.str(fsname), cs.str(origin), nvprops)
	return newError("clone", int(errno), nil)
}

func (c *core) Promote(fsname string) (string, error) {
	var cs cstrings
	defer cs.free()
	buf := (*C.char)(C.calloc(C.ZFS_MAX_DATASET_NAME_LEN, 1))
	defer C.free(unsafe.Pointer(buf))
	errno := C.lzc_promote(cs.str(fsname), buf, C.ZFS_MAX_DATASET_NAME_LEN)
	return C.GoString(buf), newError("promote", int(errno), nil)
}

func (c *core) DestroySnaps(snaps []string, deferDestroy bool) error {
	nvsnaps := booleanSetNVList(snaps)
	defer C.fnvlist_free(nvsnaps)
	var errlist *C.nvlist_t
	errno := C.lzc_destroy_snaps(nvsnaps, cbool(deferDestroy), &errlist)
	return newError("destroy_snaps", int(errno), errlistFromNVList(errlist))
}

func (c *core) Snapshot(snaps []string, props map[string]string) error {
	nvsnaps := booleanSetNVList(snaps)
	defer C.fnvlist_free(nvsnaps)
	nvprops := stringMapNVList(props)
	defer C.fnvlist_free(nvprops)
	var errlist *C.nvlist_t
	errno := C.lzc_snapshot(nvsnaps, nvprops, &errlist)
	return newError("snapshot", int(errno), errlistFromNVList(errlist))
}

func (c *core) Bookmark(bookmarks map[string]string) error {
	nvbookmarks := stringMapNVList(bookmarks)
	defer C.fnvlist_free(nvbookmarks)
	var errlist *C.nvlist_t
	errno := C.lzc_bookmark(nvbookmarks, &errlist)
	return newError("bookmark", int(errno), errlistFromNVList(errlist))
}

func (c *core) GetBookmarks(fsname string, props []string) (map[string]BookmarkProps, error) {
	var cs cstrings
	defer cs.free()
	nvprops := booleanSetNVList(props)
	defer C.fnvlist_free(nvprops)
	var bmarks *C.nvlist_t
	errno := C.lzc_get_bookmarks(cs.str(fsname), nvprops, &bmarks)
	if err := newError("get_bookmarks", int(errno), nil); err != nil {
		return nil, err
	}
	defer C.fnvlist_free(bmarks)
	return bookmarksFromNVList(bmarks), nil
}

func (c *core) DestroyBookmarks(bookmarks []string) error {
	nvbookmarks := booleanSetNVList(bookmarks)
	defer C.fnvlist_free(nvbookmarks)
	var errlist *C.nvlist_t
	errno := C.lzc_destroy_bookmarks(nvbookmarks, &errlist)
	return newError("destroy_bookmarks", int(errno), errlistFromNVList(errlist))
}

func (c *core) SnaprangeSpace(firstsnap, lastsnap string) (uint64, error) {
	var cs cstrings
	defer cs.free()
	var used C.uint64_t
	errno := C.lzc_snaprange_space(cs.str(firstsnap), cs.str(lastsnap), &used)
	return uint64(used), newError("snaprange_space", int(errno), nil)
}

func (c *core) Hold(holds map[string]string, cleanupFD int) error {
	nvholds := stringMapNVList(holds)
	defer C.fnvlist_free(nvholds)
	var errlist *C.nvlist_t
	errno := C.lzc_hold(nvholds, C.int(cleanupFD), &errlist)
	return newError("hold", int(errno), errlistFromNVList(errlist))
}

func (c *core) Release(holds map[string][]string) error {
	nvholds := nestedSetNVList(holds)
	defer C.fnvlist_free(nvholds)
	var errlist *C.nvlist_t
	errno := C.lzc_release(nvholds, &errlist)
	return newError("release", int(errno), errlistFromNVList(errlist))
}

func (c *core) GetHolds(snapname string) (map[string]uint64, error) {
	var cs cstrings
	defer cs.free()
	var holds *C.nvlist_t
	errno := C.lzc_get_holds(cs.str(snapname), &holds)
	if err := newError("get_holds", int(errno), nil); err != nil {
		return nil, err
	}
	defer C.fnvlist_free(holds)
	return uint64MapFromNVList(holds), nil
}

func (c *core) Send(snapname, from string, fd uintptr, flags SendFlags) error {
	var cs cstrings
	defer cs.free()
	errno := C.lzc_send(cs.str(snapname), cs.strOrNil(from), C.int(fd), C.enum_lzc_send_flags(flags))
	return newError("send", int(errno), nil)
}

func (c *core) SendResume(snapname, from string, fd uintptr, flags SendFlags, resumeObj, resumeOff uint64) error {
	var cs cstrings
	defer cs.free()
	errno := C.lzc_send_resume(cs.str(snapname), cs.strOrNil(from), C.int(fd), C.enum_lzc_send_flags(flags),
		C.uint64_t(resumeObj), C.uint64_t(resumeOff))
	return newError("send_resume", int(errno), nil)
}

func (c *core) SendSpace(snapname, from string, flags SendFlags) (uint64, error) {
	var cs cstrings
	defer cs.free()
	var space C.uint64_t
	errno := C.lzc_send_space(cs.str(snapname), cs.strOrNil(from), C.enum_lzc_send_flags(flags), &space)
	return uint64(space), newError("send_space", int(errno), nil)
}

func (c *core) Receive(snapname string, props map[string]string, origin string, opts ReceiveOptions, fd uintptr) error {
	var cs cstrings
	defer cs.free()
	nvprops := stringMapNVList(props)
	defer C.fnvlist_free(nvprops)
	errno := C.lzc_receive(cs.str(snapname), nvprops, cs.strOrNil(origin), cbool(opts.Force), cbool(opts.Raw), C.int(fd))
	return newError("receive", int(errno), nil)
}

func (c *core) ReceiveResumable(snapname string, props map[string]string, origin string, opts ReceiveOptions, fd uintptr) error {
	var cs cstrings
	defer cs.free()
	nvprops := stringMapNVList(props)
	defer C.fnvlist_free(nvprops)
	errno := C.lzc_receive_resumable(cs.str(snapname), nvprops, cs.strOrNil(origin), cbool(opts.Force), cbool(opts.Raw), C.int(fd))
	return newError("receive_resumable", int(errno), nil)
}

func (c *core) Exists(name string) bool {
	var cs cstrings
	defer cs.free()
	return C.lzc_exists(cs.str(name)) != C.B_FALSE
}

func (c *core) Rollback(fsname string) (string, error) {
	var cs cstrings
	defer cs.free()
	buf := (*C.char)(C.calloc(C.ZFS_MAX_DATASET_NAME_LEN, 1))
	defer C.free(unsafe.Pointer(buf))
	errno := C.lzc_rollback(cs.str(fsname), buf, C.ZFS_MAX_DATASET_NAME_LEN)
	if err := newError("rollback", int(errno), nil); err != nil {
		return "", err
	}
	return C.GoString(buf), nil
}

func (c *core) RollbackTo(fsname, snapname string) error {
	var cs cstrings
	defer cs.free()
	errno := C.lzc_rollback_to(cs.str(fsname), cs.str(snapname))
	return newError("rollback_to", int(errno), nil)
}

func (c *core) ChannelProgram(pool, program string, limits ChannelProgramLimits, argv []string) (map[string]interface{}, error) {
	return c.channelProgram("channel_program", pool, program, limits, argv, false)
}

func (c *core) ChannelProgramNosync(pool, program string, limits ChannelProgramLimits, argv []string) (map[string]interface{}, error) {
	return c.channelProgram("channel_program_nosync", pool, program, limits, argv, true)
}

// The output nvlist carries the program's error details on failure,
// so it is returned together with the error.
func (c *core) channelProgram(op, pool, program string, limits ChannelProgramLimits, argv []string, nosync bool) (map[string]interface{}, error) {
	var cs cstrings
	defer cs.free()
	args := argvNVList(argv)
	defer C.fnvlist_free(args)

	var out *C.nvlist_t
	var errno C.int
	if nosync {
		errno = C.lzc_channel_program_nosync(cs.str(pool), cs.str(program),
			C.uint64_t(limits.Instructions), C.uint64_t(limits.Memory), args, &out)
	} else {
		errno = C.lzc_channel_program(cs.str(pool), cs.str(program),
			C.uint64_t(limits.Instructions), C.uint64_t(limits.Memory), args, &out)
	}
	var ret map[string]interface{}
	if out != nil {
		ret = nvlistToMap(out)
		C.fnvlist_free(out)
	}
	return ret, newError(op, int(errno), nil)
}

func (c *core) Checkpoint(pool string) error {
	var cs cstrings
	defer cs.free()
	return newError("pool_checkpoint", int(C.lzc_pool_checkpoint(cs.str(pool))), nil)
}

func (c *core) CheckpointDiscard(pool string) error {
	var cs cstrings
	defer cs.free()
	return newError("pool_checkpoint_discard", int(C.lzc_pool_checkpoint_discard(cs.str(pool))), nil)
}
