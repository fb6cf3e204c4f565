// Package bibs implements the bib allocator: assigning meet-wide bib
// numbers to assignments from ranges partitioned by (sex, is_ncg).
// Partition counters persist across every event sharing a partition
// so bib numbers stay unique meet-wide.
package bibs

import "github.com/trackmeet/engine/internal/catalog"

// PartitionStart returns the first bib number in the partition keyed by
// (sex, is_ncg). Categories outside the documented table fall back to the
// open-ended "otherwise" partition starting at 4000.
func PartitionStart(sex catalog.Sex, isNCG bool) int {
	switch {
	case sex == catalog.SexMale && isNCG:
		return 1
	case sex == catalog.SexFemale && isNCG:
		return 500
	case sex == catalog.SexMale && !isNCG:
		return 1000
	case sex == catalog.SexFemale && !isNCG:
		return 2000
	case sex == catalog.SexMixed && isNCG:
		return 3000
	case sex == catalog.SexMixed && !isNCG:
		return 3500
	default:
		return 4000
	}
}

// PartitionCeiling returns the notional ceiling for a partition and whether
// one is defined. Ceilings are soft: AssignBibs emits a Warning rather than
// failing when a partition is exceeded.
func PartitionCeiling(sex catalog.Sex, isNCG bool) (int, bool) {
	switch {
	case sex == catalog.SexMale && isNCG:
		return 499, true
	case sex == catalog.SexFemale && isNCG:
		return 999, true
	case sex == catalog.SexMale && !isNCG:
		return 1999, true
	case sex == catalog.SexFemale && !isNCG:
		return 2999, true
	case sex == catalog.SexMixed && isNCG:
		return 3499, true
	case sex == catalog.SexMixed && !isNCG:
		return 3999, true
	default:
		return 0, false
	}
}

// BibUpdate is one assignment's newly drawn bib number, written in the
// single batched update.
type BibUpdate struct {
	AssignmentID string
	BibNumber    int
}

// Warning records a soft-ceiling overrun: the partition's notional ceiling
// was exceeded but assignment proceeds anyway.
type Warning struct {
	EventID   string
	Sex       catalog.Sex
	IsNCG     bool
	BibNumber int
	Ceiling   int
}

// Summary is the outcome of one AssignBibs invocation.
type Summary struct {
	Assigned int
	Warnings []Warning
}
