package hash

import "errors"

// Sentinel errors describing what Insert ran into. Insert itself returns a
// plain bool (matching the reference implementation's
// insert/remove/get_value signatures); these are attached to its log
// records (ErrBucketFull and ErrDuplicatePair at Debug level,
// ErrDepthExceeded at Error level), and are exported so a caller that wants
// to distinguish them can check the log record or reconstruct the condition
// (bucket.IsFull() / dir.GlobalDepth()==MaxDepth) directly.
var (
	// ErrBucketFull means Insert found every slot of the target bucket
	// readable and is about to split it.
	ErrBucketFull = errors.New("hash: bucket is full")

	// ErrDuplicatePair means the exact (key, value) pair is already present.
	ErrDuplicatePair = errors.New("hash: key/value pair already present")

	// ErrDepthExceeded means a bucket stayed full after reaching MaxDepth,
	// so the directory cannot grow to make room for it.
	ErrDepthExceeded = errors.New("hash: directory already at max depth")
)
