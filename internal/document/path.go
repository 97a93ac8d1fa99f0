package document

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Navigation and removal errors. Use errors.Is to match them; PathError
// wraps them with the offending segment.
var (
	ErrKeyNotFound     = errors.New("Key not found")
	ErrInvalidIndex    = errors.New("Invalid index")
	ErrIndexOutOfRange = errors.New("Index out of range")
	ErrInvalidType     = errors.New("Invalid type")
)

// PathSeparator separates the segments of a path.
const PathSeparator = "."

// PathError describes a path segment that could not be resolved.
type PathError struct {
	Err     error
	Segment string
	Index   uint64
	Got     Kind
}

func (e *PathError) Error() string {
	switch e.Err {
	case ErrKeyNotFound:
		return fmt.Sprintf("Key %q not found", e.Segment)
	case ErrInvalidIndex:
		return fmt.Sprintf("%q is not a valid index for array", e.Segment)
	case ErrIndexOutOfRange:
		return fmt.Sprintf("Index %d out of range", e.Index)
	case ErrInvalidType:
		return fmt.Sprintf("Invalid type: expected Object, got %s", e.Got)
	default:
		return e.Err.Error()
	}
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// Get resolves a dot-separated path below v and returns the addressed node.
// An empty path addresses v itself. Segments are object keys, or indexes
// when the current node is an array.
//
// The returned node is part of v's tree: writing through it mutates v.
func (v *Value) Get(path string) (*Value, error) {
	cur := v
	for path != "" {
		var seg string
		seg, path, _ = strings.Cut(path, PathSeparator)
		next, err := cur.child(seg)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// Set replaces the node addressed by path with val. Ancestors are never
// created or restructured; every segment must already resolve. val is owned
// by v afterwards.
func (v *Value) Set(path string, val *Value) error {
	target, err := v.Get(path)
	if err != nil {
		return err
	}
	target.replace(val)
	return nil
}

// Delete removes the node addressed by path from its parent. Array elements
// after the removed index shift left. Failures resolving the parent are
// reported as *PathError; failures removing the last segment are reported as
// the bare sentinel errors.
func (v *Value) Delete(path string) error {
	parentPath, last := "", path
	if i := strings.LastIndex(path, PathSeparator); i >= 0 {
		parentPath, last = path[:i], path[i+1:]
	}
	parent, err := v.Get(parentPath)
	if err != nil {
		return err
	}
	return parent.removeChild(last)
}

func (v *Value) child(seg string) (*Value, error) {
	switch v.kind {
	case KindObject:
		c, ok := v.object[seg]
		if !ok {
			return nil, &PathError{Err: ErrKeyNotFound, Segment: seg}
		}
		return c, nil
	case KindArray:
		idx, err := strconv.ParseUint(seg, 10, 64)
		if err != nil {
			return nil, &PathError{Err: ErrInvalidIndex, Segment: seg}
		}
		if idx >= uint64(len(v.array)) {
			return nil, &PathError{Err: ErrIndexOutOfRange, Segment: seg, Index: idx}
		}
		return v.array[idx], nil
	default:
		return nil, &PathError{Err: ErrInvalidType, Segment: seg, Got: v.kind}
	}
}

func (v *Value) removeChild(seg string) error {
	switch v.kind {
	case KindObject:
		if _, ok := v.object[seg]; !ok {
			return ErrKeyNotFound
		}
		delete(v.object, seg)
		return nil
	case KindArray:
		idx, err := strconv.ParseUint(seg, 10, 64)
		if err != nil {
			return ErrInvalidIndex
		}
		if idx >= uint64(len(v.array)) {
			return ErrIndexOutOfRange
		}
		v.array = slices.Delete(v.array, int(idx), int(idx)+1)
		return nil
	default:
		return ErrInvalidType
	}
}
