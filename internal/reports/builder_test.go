package reports

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

type fakeStore struct {
	startList  []StartListRow
	meetExport []MeetExportRow
	federation []FederationRow
	rollCall   []RollCallRow
	program    []ProgramHeat
	resultRows []ResultSheetRow
	emergency  []EmergencyBackupSection
	emissions  []*Emission
}

func (f *fakeStore) StartListRows(context.Context, string) ([]StartListRow, error) { return f.startList, nil }
func (f *fakeStore) MeetExportRows(context.Context, string) ([]MeetExportRow, error) {
	return f.meetExport, nil
}
func (f *fakeStore) FederationRows(context.Context, string) ([]FederationRow, error) {
	return f.federation, nil
}
func (f *fakeStore) RollCallRows(context.Context, string) ([]RollCallRow, error) { return f.rollCall, nil }
func (f *fakeStore) ProgramRows(context.Context, string) ([]ProgramHeat, error)  { return f.program, nil }
func (f *fakeStore) ResultSheetRows(context.Context, string) ([]ResultSheetRow, error) {
	return f.resultRows, nil
}
func (f *fakeStore) EmergencyBackupSections(context.Context, string) ([]EmergencyBackupSection, error) {
	return f.emergency, nil
}

func (f *fakeStore) RecordEmission(_ context.Context, e *Emission) error {
	f.emissions = append(f.emissions, e)
	return nil
}

func TestEmitStartListCSV_HeaderAndFiltering(t *testing.T) {
	store := &fakeStore{startList: []StartListRow{
		{HeatNumber: 1, LaneNumber: 2, BibNumber: 1002, FamilyName: "Suzuki", GivenName: "Ken", Team: "Tokyo TC", SeedTime: 245.5, FederationID: "J123", Status: "assigned"},
		{HeatNumber: 1, LaneNumber: 1, BibNumber: 1001, FamilyName: "Abe", GivenName: "Ren", Team: "Osaka AC", SeedTime: 240.0, FederationID: "J124", Status: "assigned"},
		{HeatNumber: 1, LaneNumber: 3, BibNumber: 1003, FamilyName: "Ito", GivenName: "Sho", Team: "Nagoya", SeedTime: 250.0, FederationID: "J125", Status: "dns"},
	}}

	b := NewBuilder(store, func() time.Time { return time.Unix(0, 0) })

	out, err := b.EmitStartListCSV(context.Background(), "m1", "e1", "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !bytes.HasPrefix(out, []byte(utf8BOM)) {
		t.Fatalf("expected UTF-8 BOM prefix")
	}

	body := strings.TrimPrefix(string(out), utf8BOM)
	lines := strings.Split(strings.TrimRight(body, "\r\n"), "\r\n")

	if lines[0] != startListHeader {
		t.Fatalf("unexpected header: %q", lines[0])
	}

	// 2 data lines expected: the dns row is excluded.
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 data rows, got %d lines: %v", len(lines), lines)
	}

	if !strings.HasPrefix(lines[1], "1,1,1001,Abe,Ren,Osaka AC,4:00.00,J124") {
		t.Fatalf("unexpected first data row, or rows not ordered by lane: %q", lines[1])
	}

	if len(store.emissions) != 1 || store.emissions[0].ReportType != ReportStartListCSV {
		t.Fatalf("expected one start_list_csv emission recorded, got %+v", store.emissions)
	}
}

func TestEmitResultSheet_AssignsRandomRefNumbers(t *testing.T) {
	store := &fakeStore{resultRows: []ResultSheetRow{
		{LaneNumber: 1, FamilyName: "Abe", DateOfBirth: time.Date(1998, 4, 1, 0, 0, 0, 0, time.UTC)},
		{LaneNumber: 2, FamilyName: "Ito", DateOfBirth: time.Date(2001, 6, 1, 0, 0, 0, 0, time.UTC)},
	}}

	b := NewBuilder(store, nil)

	rows, err := b.EmitResultSheet(context.Background(), "m1", "h1", "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	for _, r := range rows {
		if len(r.RefNumber) != 4 {
			t.Fatalf("expected 4-digit reference number, got %q", r.RefNumber)
		}
	}

	if rows[0].BirthYearCode() != "98" {
		t.Fatalf("expected birth year code 98, got %s", rows[0].BirthYearCode())
	}

	if rows[1].BirthYearCode() != "01" {
		t.Fatalf("expected birth year code 01, got %s", rows[1].BirthYearCode())
	}
}

func TestEmitFederationCSV_TwentyThreeColumns(t *testing.T) {
	store := &fakeStore{federation: []FederationRow{
		{
			FederationID: "J123", FamilyName: "鈴木", GivenName: "健", BibNumber: 1001,
			FamilyPhonetic: "スズキ", GivenPhonetic: "ケン", FamilyRomaji: "SUZUKI", GivenRomaji: "Ken",
			Nationality: "JPN", Sex: "M", Prefecture: "東京",
			DateOfBirth: time.Date(1998, 4, 1, 0, 0, 0, 0, time.UTC), Grade: "B3",
		},
	}}

	b := NewBuilder(store, func() time.Time { return time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC) })

	out, err := b.EmitFederationCSV(context.Background(), "m1", "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimRight(strings.TrimPrefix(string(out), utf8BOM), "\r\n"), "\r\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d", len(lines))
	}

	if got := len(strings.Split(lines[0], ",")); got != 23 {
		t.Fatalf("expected 23 header columns, got %d", got)
	}

	fields := strings.Split(lines[1], ",")
	if len(fields) != 23 {
		t.Fatalf("expected 23 data columns, got %d", len(fields))
	}

	if fields[0] != "2025" || fields[10] != "男子" || fields[11] != "13" || fields[12] != "東京" {
		t.Fatalf("unexpected year/sex/prefecture fields: %v", fields)
	}

	if fields[17] != "1998/04/01" {
		t.Fatalf("expected DOB 1998/04/01, got %q", fields[17])
	}
}

func TestEmitMeetCSV_IncludesAllStatuses(t *testing.T) {
	store := &fakeStore{meetExport: []MeetExportRow{
		{StartListRow: StartListRow{HeatNumber: 1, LaneNumber: 1, Status: "dns"}, Sex: "M", DateOfBirth: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)},
		{StartListRow: StartListRow{HeatNumber: 1, LaneNumber: 2, Status: "assigned"}, Sex: "F", DateOfBirth: time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)},
	}}

	b := NewBuilder(store, nil)

	out, err := b.EmitMeetCSV(context.Background(), "m1", "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimRight(strings.TrimPrefix(string(out), utf8BOM), "\r\n"), "\r\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows (including dns), got %d", len(lines))
	}
}
