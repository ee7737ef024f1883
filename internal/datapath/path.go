// Package datapath reads and writes dot-separated paths such as
// "work_experience.0.company" over generic JSON trees
// (map[string]any, []any and scalars, as produced by encoding/json).
//
// Writes never mutate their input: every container on the path from the
// root to the target is copied, containers off the path are shared.
package datapath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// SparseFill is stored in the slots created when a write targets an index
// past the end of an array.
const SparseFill = ""

// MaxSparseGrow is how far past the end of an array a write may reach.
const MaxSparseGrow = 1000

// ErrIndexOutOfRange is returned by TrySet for an index more than
// MaxSparseGrow slots past the end of its array.
var ErrIndexOutOfRange = errors.New("array index out of range")

// Split returns the segments of path. The empty path has no segments.
func Split(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// Join is the inverse of Split.
func Join(segments ...string) string {
	return strings.Join(segments, ".")
}

// Child appends key to path.
func Child(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// Index appends an array index to path.
func Index(path string, i int) string {
	return Child(path, strconv.Itoa(i))
}

// IsIndex reports whether seg addresses an array element (matches ^\d+$).
func IsIndex(seg string) bool {
	_, ok := parseIndex(seg)
	return ok
}

func parseIndex(seg string) (int, bool) {
	if seg == "" {
		return 0, false
	}
	for i := 0; i < len(seg); i++ {
		if seg[i] < '0' || seg[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(seg)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Get returns the value stored at path. The boolean is false as soon as a
// scalar, a missing key or an out-of-range index is met before the path is
// exhausted. The empty path addresses the root.
func Get(tree any, path string) (any, bool) {
	current := tree
	for _, seg := range Split(path) {
		switch node := current.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			current = v
		case []any:
			i, ok := parseIndex(seg)
			if !ok || i >= len(node) {
				return nil, false
			}
			current = node[i]
		default:
			return nil, false
		}
	}
	return current, true
}

// GetString returns the value at path when it is a string.
func GetString(tree any, path string) (string, bool) {
	v, ok := Get(tree, path)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Shape tells Set which container to create at a path prefix.
// known is false when the prefix is not described.
type Shape interface {
	IsArrayAt(prefix []string) (isArray, known bool)
}

// Set returns a new tree equal to tree with value stored at path.
// Missing or wrong-shaped containers are (re)created; whether a container is
// an array is guessed from the segment that addresses into it.
// A write TrySet rejects leaves tree as it was.
func Set(tree any, path string, value any) any {
	return SetShaped(tree, path, value, nil)
}

// SetShaped is Set with container kinds taken from shape where it knows them.
// A numeric segment under a prefix the shape declares an object is an object key.
func SetShaped(tree any, path string, value any, shape Shape) any {
	next, err := TrySet(tree, path, value, shape)
	if err != nil {
		return tree
	}
	return next
}

// TrySet is SetShaped reporting ErrIndexOutOfRange instead of ignoring the write.
func TrySet(tree any, path string, value any, shape Shape) (any, error) {
	return set(tree, Split(path), 0, value, shape)
}

func set(node any, segs []string, depth int, value any, shape Shape) (any, error) {
	if depth == len(segs) {
		return value, nil
	}
	seg := segs[depth]

	idx, numeric := parseIndex(seg)
	wantArray := numeric
	if shape != nil {
		if isArray, known := shape.IsArrayAt(segs[:depth]); known {
			wantArray = numeric && isArray
		}
	}

	if wantArray {
		old, _ := node.([]any)
		if idx-len(old) > MaxSparseGrow {
			return nil, fmt.Errorf("%s: %w", Join(segs[:depth+1]...), ErrIndexOutOfRange)
		}
		var child any
		if idx < len(old) {
			child = old[idx]
		}
		v, err := set(child, segs, depth+1, value, shape)
		if err != nil {
			return nil, err
		}
		next := make([]any, max(len(old), idx+1))
		copy(next, old)
		for i := len(old); i < idx; i++ {
			next[i] = SparseFill
		}
		next[idx] = v
		return next, nil
	}

	old, _ := node.(map[string]any)
	v, err := set(old[seg], segs, depth+1, value, shape)
	if err != nil {
		return nil, err
	}
	next := make(map[string]any, len(old)+1)
	for k, val := range old {
		next[k] = val
	}
	next[seg] = v
	return next, nil
}

// Clone returns a deep copy of tree. Scalars are returned as is.
func Clone(tree any) any {
	switch node := tree.(type) {
	case map[string]any:
		out := make(map[string]any, len(node))
		for k, v := range node {
			out[k] = Clone(v)
		}
		return out
	case []any:
		out := make([]any, len(node))
		for i, v := range node {
			out[i] = Clone(v)
		}
		return out
	default:
		return tree
	}
}
