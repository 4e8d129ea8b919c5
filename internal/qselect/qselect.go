// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package qselect implements partial selection (quickselect) over float32
// scratch buffers, used by every median-based filter and template kernel
// in this module.
package qselect

// Select returns the k-th lowest element (0-indexed) of a[:n], partially
// reordering a[:n] in the process. a must not contain NaN; callers filter
// NaNs out before pushing values into the scratch buffer. Pivots on the
// middle element of the current partition, giving expected O(n) and worst
// case O(n^2).
func Select(a []float32, n int, k int) float32 {
	left, right := 0, n-1
	for left < right {
		mid := (left + right) >> 1
		pivot := a[mid]
		l, r := left-1, right+1
		for {
			for {
				l++
				if a[l] >= pivot {
					break
				}
			}
			for {
				r--
				if a[r] <= pivot {
					break
				}
			}
			if l >= r {
				break
			}
			a[l], a[r] = a[r], a[l]
		}
		index := r
		offset := index - left + 1
		if k < offset {
			right = index
		} else {
			left = index + 1
			k -= offset
		}
	}
	return a[left]
}

// Median returns the median of a[:n], permuting a[:n] in place. Undefined
// for n == 0; callers must check. For even n, averages the two middle
// elements found by two partial selections, matching the reference
// implementation's even-length convention.
func Median(a []float32, n int) float32 {
	if n%2 == 1 {
		return Select(a, n, n/2)
	}
	hi := Select(a, n, n/2)
	// The low half is now entirely left of index n/2; select the max of it.
	lo := Select(a, n/2, n/2-1)
	return (lo + hi) / 2
}

// Median9 computes the median of a 3x3 neighborhood (nine values) using a
// fixed sorting network, faster than a general quickselect for this common
// filter window size. Modifies a in place. a must not contain NaN.
func Median9(a []float32) float32 {
	if a[0] > a[1] {
		a[0], a[1] = a[1], a[0]
	}
	if a[3] > a[4] {
		a[3], a[4] = a[4], a[3]
	}
	if a[6] > a[7] {
		a[6], a[7] = a[7], a[6]
	}
	if a[1] > a[2] {
		a[1], a[2] = a[2], a[1]
	}
	if a[4] > a[5] {
		a[4], a[5] = a[5], a[4]
	}
	if a[7] > a[8] {
		a[7], a[8] = a[8], a[7]
	}
	if a[0] > a[1] {
		a[0], a[1] = a[1], a[0]
	}
	if a[3] > a[4] {
		a[3], a[4] = a[4], a[3]
	}
	if a[6] > a[7] {
		a[6], a[7] = a[7], a[6]
	}
	if a[0] > a[3] {
		a[3] = a[0]
	}
	if a[3] > a[6] {
		a[6] = a[3]
	}
	if a[1] > a[4] {
		a[1], a[4] = a[4], a[1]
	}
	if a[4] > a[7] {
		a[4] = a[7]
	}
	if a[1] > a[4] {
		a[4] = a[1]
	}
	if a[5] > a[8] {
		a[5] = a[8]
	}
	if a[2] > a[5] {
		a[2] = a[5]
	}
	if a[2] > a[4] {
		a[2], a[4] = a[4], a[2]
	}
	if a[4] > a[6] {
		a[4] = a[6]
	}
	if a[2] > a[4] {
		a[4] = a[2]
	}
	return a[4]
}
