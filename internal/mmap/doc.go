// Package mmap maps snapshot files read-only into memory.
//
// The local blob store uses it to hand the codec a []byte view of a
// snapshot without reading the file into the heap. The view stays valid
// until Close; callers copy whatever they keep past that point.
//
// Unix uses mmap(2) with madvise(2). Windows uses CreateFileMapping and
// MapViewOfFile, where Advise is a no-op.
package mmap
