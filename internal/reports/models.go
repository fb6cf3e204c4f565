// Package reports implements the report builder: pure, read-only
// functions producing in-memory report models from explicit, precomputed
// joins. The federation-compatible CSV and start-list CSV are hand-built
// with a manual CRLF writer.
package reports

import (
	"fmt"
	"time"
)

// StartListRow is one flat record joining assignment, entry, athlete, and
// team for the start-list CSV and program.
type StartListRow struct {
	HeatNumber   int
	LaneNumber   int
	BibNumber    int
	FamilyName   string
	GivenName    string
	Team         string
	SeedTime     float64
	FederationID string
	Status       string // "assigned", "dns", "dnf", "dq"
}

// MeetExportRow is the superset row for the meet export CSV: every status,
// plus phonetic names, sex display, DOB, and team phonetic.
type MeetExportRow struct {
	StartListRow
	FamilyPhonetic string
	GivenPhonetic  string
	Sex            string
	DateOfBirth    time.Time
	TeamPhonetic   string
	StatusDisplay  string
}

// RollCallRow is one roll-call sheet row, ordered by lane, with a check
// column.
type RollCallRow struct {
	LaneNumber int
	FamilyName string
	GivenName  string
	Team       string
	CheckedIn  bool
}

// ProgramHeat is one heat's program table: (lane, name, team, seed time)
// per athlete.
type ProgramHeat struct {
	HeatNumber int
	Rows       []StartListRow
}

// ResultSheetRow is one athlete's two-line result-sheet entry: phonetic
// name on line 1, native-script name plus a two-digit birth-year code on
// line 2. RefNumber is a random four-digit reference generated at emission
// time and never persisted.
type ResultSheetRow struct {
	LaneNumber     int
	FamilyPhonetic string
	GivenPhonetic  string
	FamilyName     string
	GivenName      string
	DateOfBirth    time.Time
	RefNumber      string
}

// BirthYearCode returns the two-digit birth-year code for the result sheet.
func (r ResultSheetRow) BirthYearCode() string {
	y := r.DateOfBirth.Year() % 100
	if y < 0 {
		y = -y
	}

	return fmt.Sprintf("%02d", y)
}

// FederationRow is one athlete's row in the federation-compatible entry
// template: one row per athlete entered in the meet, with the bib number
// from their assignment when one exists.
type FederationRow struct {
	FederationID   string
	FamilyName     string
	GivenName      string
	BibNumber      int
	FamilyPhonetic string
	GivenPhonetic  string
	FamilyRomaji   string
	GivenRomaji    string
	Nationality    string
	Sex            string // "M" or "F"
	Prefecture     string
	DateOfBirth    time.Time
	Grade          string
}

// EmergencyBackupSection is one event's program tables, concatenated across
// the meet for the emergency-backup report.
type EmergencyBackupSection struct {
	EventID   string
	EventName string
	Heats     []ProgramHeat
}

// Emission is the append-only log row written by every successful
// emission.
type Emission struct {
	ID         string
	ReportType string
	MeetID     string
	EventID    *string
	UserID     string
	Timestamp  time.Time
}

// Report type identifiers recorded on Emission.ReportType.
const (
	ReportStartListCSV    = "start_list_csv"
	ReportMeetCSV         = "meet_csv"
	ReportFederationCSV   = "federation_csv"
	ReportRollCall        = "roll_call"
	ReportProgram         = "program"
	ReportResultSheet     = "result_sheet"
	ReportEmergencyBackup = "emergency_backup"
)
