package core

import (
	"sort"
	"strings"
)

// CompareFlatNumbers orders flat labels naturally: runs of digits compare by
// numeric value, everything else byte-wise and case-insensitively. "A-2"
// sorts before "A-10", "101" before "1001". Ties fall back to the raw labels
// so the order is total.
func CompareFlatNumbers(a, b string) int {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	i, j := 0, 0
	for i < len(la) && j < len(lb) {
		ca, cb := la[i], lb[j]
		if isDigit(ca) && isDigit(cb) {
			si := i
			for i < len(la) && isDigit(la[i]) {
				i++
			}
			sj := j
			for j < len(lb) && isDigit(lb[j]) {
				j++
			}
			if c := compareDigitRuns(la[si:i], lb[sj:j]); c != 0 {
				return c
			}
			continue
		}
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
		i++
		j++
	}
	switch {
	case len(la)-i < len(lb)-j:
		return -1
	case len(la)-i > len(lb)-j:
		return 1
	}
	return strings.Compare(a, b)
}

func compareDigitRuns(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// SortFlats sorts flats in place by natural flat number order.
func SortFlats(flats []Flat) {
	sort.SliceStable(flats, func(i, j int) bool {
		return CompareFlatNumbers(flats[i].FlatNumber, flats[j].FlatNumber) < 0
	})
}
