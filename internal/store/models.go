package store

// CustomRange is one header row of the relational custom-range side-store:
// a project-specific element contributed to the named range, owning the
// value rows nested beneath it.
type CustomRange struct {
	ID                 int64
	ProjectID          string
	RangeType          string
	RangeName          string
	ElementID          string
	ElementLabel       string
	ElementDescription string
	Values             []CustomRangeValue
}

// CustomRangeValue is one child value row of a custom-range header.
type CustomRangeValue struct {
	ID          int64
	Value       string
	Label       string
	Description string
}
