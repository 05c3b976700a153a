// Package enums provides type-safe enumeration types shared by storage, ledger and the web interface.
//
// This package uses code generation via go-pkgz/enum. The enum types are defined as unexported
// integer types in this file, the go:generate directives create the exported types with all
// necessary methods in separate files (*_enum.go).
//
// For each enum type, the generator creates:
//   - An exported struct type (e.g., Status) with name and value fields
//   - String() method returning the lower-case name
//   - Parse functions (e.g., ParseStatus), case-insensitive
//   - Database methods (Scan/Value), values are stored by name
//   - JSON marshaling methods (MarshalText/UnmarshalText)
//   - Exported values (e.g., StatusPending) and the Values/Names lists
//
// Hand-written helpers in this file add Turkish display labels and the status/type rules.
//
// Usage:
//
//	status := enums.StatusPending
//	fmt.Println(status.String()) // "pending"
//	fmt.Println(status.Label())  // "Beklemede"
//
//	parsed, err := enums.ParseStatus("completed")
//	if err != nil {
//	    // handle invalid input
//	}
//
// To regenerate the enum types after modifications:
//
//	go generate ./app/enums
package enums

import (
	"strings"
)

//go:generate go run github.com/go-pkgz/enum@latest -type status -lower
//go:generate go run github.com/go-pkgz/enum@latest -type jobType -lower
//go:generate go run github.com/go-pkgz/enum@latest -type sortOrder -lower
//go:generate go run github.com/go-pkgz/enum@latest -type group -lower

// status is the lifecycle state of a job, finished is for demo jobs only.
// Generator input, use the exported Status.
type status int

const (
	statusPending status = iota
	statusCompleted
	statusFinished
)

// jobType distinguishes installation jobs from demo engagements.
// Generator input, use the exported JobType.
type jobType int

const (
	jobTypeNormal jobType = iota
	jobTypeDemo
)

// sortOrder is the direction of the (date, id) ordering.
// Generator input, use the exported SortOrder.
type sortOrder int

const (
	sortOrderAsc sortOrder = iota
	sortOrderDesc
)

// group is a dashboard tab, jobs grouped by type and status.
// Generator input, use the exported Group.
type group int

const (
	groupPendingNormal group = iota
	groupCompletedNormal
	groupPendingDemo
	groupInProgressDemo
	groupFinishedDemo
)

// Label returns display text for the status
func (e Status) Label() string {
	switch e {
	case StatusPending:
		return "Beklemede"
	case StatusCompleted:
		return "Tamamlandı"
	case StatusFinished:
		return "Bitti"
	default:
		return e.name
	}
}

// IsZero reports an unset status
func (e Status) IsZero() bool { return e == Status{} }

// Done reports whether the status counts as finished work for personnel statistics
func (e Status) Done() bool {
	return e == StatusCompleted || e == StatusFinished
}

// ValidFor reports whether the status is allowed for the given job type.
// Finished is reserved for demo jobs.
func (e Status) ValidFor(t JobType) bool {
	switch e {
	case StatusPending, StatusCompleted:
		return true
	case StatusFinished:
		return t == JobTypeDemo
	default:
		return false
	}
}

// ParseJobTypeInput parses a job type typed by a user or read from a file.
// Surrounding spaces are ignored and empty input means JobTypeNormal.
func ParseJobTypeInput(s string) (JobType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return JobTypeNormal, nil
	}
	return ParseJobType(s)
}

// IsZero reports an unset job type
func (e JobType) IsZero() bool { return e == JobType{} }

// Label returns display text for the job type
func (e JobType) Label() string {
	if e == JobTypeDemo {
		return "Demo"
	}
	return "Montaj"
}

// SQL returns the ORDER BY direction keyword
func (e SortOrder) SQL() string {
	if e == SortOrderDesc {
		return "DESC"
	}
	return "ASC"
}

// Toggle returns the opposite order
func (e SortOrder) Toggle() SortOrder {
	if e == SortOrderDesc {
		return SortOrderAsc
	}
	return SortOrderDesc
}

// Label returns display text for the sort order
func (e SortOrder) Label() string {
	if e == SortOrderDesc {
		return "Yeniden Eskiye"
	}
	return "Eskiden Yeniye"
}

// Groups returns display groups in tab order. Demo groups are included only when withDemo is set.
func Groups(withDemo bool) []Group {
	if withDemo {
		return append([]Group(nil), GroupValues...)
	}
	return []Group{GroupPendingNormal, GroupCompletedNormal}
}

// GroupOf returns the display group a job with the given type and status belongs to
func GroupOf(t JobType, s Status) Group {
	if t == JobTypeDemo {
		switch s {
		case StatusCompleted:
			return GroupInProgressDemo
		case StatusFinished:
			return GroupFinishedDemo
		default:
			return GroupPendingDemo
		}
	}
	if s == StatusPending {
		return GroupPendingNormal
	}
	return GroupCompletedNormal
}

// Label returns tab title for the group
func (e Group) Label() string {
	switch e {
	case GroupPendingNormal:
		return "Bekleyen Montajlar"
	case GroupCompletedNormal:
		return "Tamamlananlar"
	case GroupPendingDemo:
		return "Bekleyen Demolar"
	case GroupInProgressDemo:
		return "Devam Eden Demolar"
	case GroupFinishedDemo:
		return "Biten Demolar"
	default:
		return e.name
	}
}
