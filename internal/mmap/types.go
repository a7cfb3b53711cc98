package mmap

import "errors"

// AccessPattern is a hint about how a mapping will be read.
type AccessPattern int

const (
	AccessDefault AccessPattern = iota
	// AccessSequential suits a single decode pass over a snapshot.
	AccessSequential
	AccessRandom
	AccessWillNeed
)

var (
	// ErrClosed is returned when a closed mapping is accessed.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned for files that cannot be mapped in one piece.
	ErrInvalidSize = errors.New("mmap: invalid file size")
	// ErrInvalidOffset is returned for negative read offsets.
	ErrInvalidOffset = errors.New("mmap: invalid offset")
)
