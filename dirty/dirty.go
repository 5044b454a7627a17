// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package dirty tracks rectangles of a panel that are pending a refresh.
//
// The merge is a single greedy pass over the list. It is not a rectangle set
// union: overlapping entries may remain, but no entry ever covers pixels that
// were not reported dirty, and no entry is contained in another.
package dirty

import "image"

// Absorb merges r into list and returns the updated list.
//
// The first entry that matches one of the rules below wins:
//   - an entry contains r: list is returned unchanged;
//   - r contains an entry: that entry is replaced by r;
//   - r extends an entry (see Extends): that entry grows to the union.
//
// Otherwise r is appended. When an entry is replaced or grown, later entries
// it now contains are dropped. Entry order is preserved.
func Absorb(list []image.Rectangle, r image.Rectangle) []image.Rectangle {
	if r.Empty() {
		return list
	}
	for i, e := range list {
		if r.In(e) {
			return list
		}
		if e.In(r) {
			list[i] = r
			return compact(list, i)
		}
		if Extends(r, e) {
			list[i] = e.Union(r)
			return compact(list, i)
		}
	}
	return append(list, r)
}

// compact removes the entries after i that list[i] contains.
func compact(list []image.Rectangle, i int) []image.Rectangle {
	n := i + 1
	for _, e := range list[i+1:] {
		if !e.In(list[i]) {
			list[n] = e
			n++
		}
	}
	return list[:n]
}

// Extends reports whether the union of a and b is itself exactly a
// rectangle: both share the same span on one axis and overlap or touch on the
// other.
func Extends(a, b image.Rectangle) bool {
	if a.Empty() || b.Empty() {
		return false
	}
	if a.Min.X == b.Min.X && a.Max.X == b.Max.X {
		return a.Min.Y <= b.Max.Y && b.Min.Y <= a.Max.Y
	}
	if a.Min.Y == b.Min.Y && a.Max.Y == b.Max.Y {
		return a.Min.X <= b.Max.X && b.Min.X <= a.Max.X
	}
	return false
}

// Area returns the number of pixels covered by the list, counting overlaps
// once per entry.
func Area(list []image.Rectangle) int {
	n := 0
	for _, r := range list {
		n += r.Dx() * r.Dy()
	}
	return n
}
