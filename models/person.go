package models

import "time"

// SentinelNetWorth marks "no valid net worth yet" and unparseable values.
// Any real parsed net worth compares greater than it.
const SentinelNetWorth = -1.0

// RawPerson holds one row exactly as read from the tabular source.
type RawPerson struct {
	Name     string
	Email    string
	Phone    string
	NetWorth string
	Line     int
}

// Person is the cleaned form of a RawPerson. It only lives for the duration
// of a single aggregation pass.
type Person struct {
	Name         string
	EmailMissing bool
	PhoneMissing bool
	NetWorth     float64 // billions; SentinelNetWorth when !Parsed
	Parsed       bool
}

// Summary holds the three derived facts of one pass over a source, plus a
// few counters used for diagnostics and the optional reports.
type Summary struct {
	Source          string
	RichestName     string
	RichestNetWorth float64
	Found           bool
	EmailMissing    int
	PhoneMissing    int

	RowsRead    int
	RowsSkipped int
	Unparseable int
	GeneratedAt time.Time
}

// Run is a Summary as stored in PostgreSQL.
type Run struct {
	ID int64
	Summary
	CreatedAt time.Time
}
