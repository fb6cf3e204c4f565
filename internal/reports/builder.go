package reports

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trackmeet/engine/internal/canonicalization"
	"github.com/trackmeet/engine/internal/timeutil"
)

// utf8BOM precedes every emitted CSV so downstream spreadsheet tools
// (timing-system imports in particular) detect UTF-8 correctly.
const utf8BOM = "\xEF\xBB\xBF"

// startListHeader is the literal header line the timing-system import expects.
const startListHeader = "Heat,Lane,Bib,LastName,FirstName,Team,SeedTime,JAAF_ID"

// federationHeader is the fixed 23-column header of the federation entry
// template. The four 所属 columns and the trailing 予備 column are emitted
// empty.
const federationHeader = "年度,JAAF ID,姓,名,ナンバー,姓カナ,名カナ,姓ローマ字,名ローマ字,国籍,性別," +
	"陸協番号,陸協名,所属1,所属2,所属3,所属4,生年月日,旧登録番号,備考,学年,団体区分,予備"

// Builder implements the report emission operations against a Store.
type Builder struct {
	store Store
	now   func() time.Time
}

// NewBuilder builds a reports.Builder. now defaults to time.Now when nil.
func NewBuilder(store Store, now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}

	return &Builder{store: store, now: now}
}

func writeCSVLine(buf *bytes.Buffer, fields ...string) {
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}

		buf.WriteString(escapeCSVField(f))
	}

	buf.WriteString("\r\n")
}

func escapeCSVField(f string) string {
	if strings.ContainsAny(f, ",\"\r\n") {
		return `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}

	return f
}

// EmitStartListCSV produces the per-event start-list CSV: only
// Assigned assignments, ordered by (heat_number, lane_number).
func (b *Builder) EmitStartListCSV(ctx context.Context, meetID, eventID, userID string) ([]byte, error) {
	rows, err := b.store.StartListRows(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("fetch start-list rows: %w", err)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].HeatNumber != rows[j].HeatNumber {
			return rows[i].HeatNumber < rows[j].HeatNumber
		}

		return rows[i].LaneNumber < rows[j].LaneNumber
	})

	var buf bytes.Buffer

	buf.WriteString(utf8BOM)
	writeCSVLine(&buf, strings.Split(startListHeader, ",")...)

	for _, r := range rows {
		if r.Status != assignedStatus {
			continue
		}

		writeCSVLine(&buf,
			strconv.Itoa(r.HeatNumber), strconv.Itoa(r.LaneNumber), strconv.Itoa(r.BibNumber),
			r.FamilyName, r.GivenName, r.Team, timeutil.SecondsToDisplay(r.SeedTime), r.FederationID,
		)
	}

	if err := b.recordEmission(ctx, ReportStartListCSV, meetID, &eventID, userID); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

const assignedStatus = "assigned"

// EmitMeetCSV produces the meet export CSV: the start-list
// superset including phonetic names, sex display, DOB, team phonetic, and
// status display, for every entry status.
func (b *Builder) EmitMeetCSV(ctx context.Context, meetID, userID string) ([]byte, error) {
	rows, err := b.store.MeetExportRows(ctx, meetID)
	if err != nil {
		return nil, fmt.Errorf("fetch meet export rows: %w", err)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].HeatNumber != rows[j].HeatNumber {
			return rows[i].HeatNumber < rows[j].HeatNumber
		}

		return rows[i].LaneNumber < rows[j].LaneNumber
	})

	var buf bytes.Buffer

	buf.WriteString(utf8BOM)
	writeCSVLine(&buf,
		"Heat", "Lane", "Bib", "LastName", "FirstName", "LastNameKana", "FirstNameKana",
		"Sex", "DateOfBirth", "Team", "TeamKana", "SeedTime", "JAAF_ID", "Status",
	)

	for _, r := range rows {
		writeCSVLine(&buf,
			strconv.Itoa(r.HeatNumber), strconv.Itoa(r.LaneNumber), strconv.Itoa(r.BibNumber),
			r.FamilyName, r.GivenName, r.FamilyPhonetic, r.GivenPhonetic,
			r.Sex, r.DateOfBirth.Format("2006/01/02"), r.Team, r.TeamPhonetic,
			timeutil.SecondsToDisplay(r.SeedTime), r.FederationID, r.StatusDisplay,
		)
	}

	if err := b.recordEmission(ctx, ReportMeetCSV, meetID, nil, userID); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func sexLabel(sex string) string {
	switch sex {
	case "M":
		return "男子"
	case "F":
		return "女子"
	default:
		return ""
	}
}

// EmitFederationCSV produces the federation-compatible entry template: one
// row per athlete entered in the meet, 23 columns, DOB formatted
// YYYY/MM/DD, prefecture rendered both as its JIS number and its name.
func (b *Builder) EmitFederationCSV(ctx context.Context, meetID, userID string) ([]byte, error) {
	rows, err := b.store.FederationRows(ctx, meetID)
	if err != nil {
		return nil, fmt.Errorf("fetch federation rows: %w", err)
	}

	year := strconv.Itoa(b.now().Year())

	var buf bytes.Buffer

	buf.WriteString(utf8BOM)
	writeCSVLine(&buf, strings.Split(federationHeader, ",")...)

	for _, r := range rows {
		bib := ""
		if r.BibNumber > 0 {
			bib = strconv.Itoa(r.BibNumber)
		}

		prefNumber := ""
		if n := canonicalization.PrefectureNumber(r.Prefecture); n > 0 {
			prefNumber = strconv.Itoa(n)
		}

		writeCSVLine(&buf,
			year, r.FederationID, r.FamilyName, r.GivenName, bib,
			r.FamilyPhonetic, r.GivenPhonetic, r.FamilyRomaji, r.GivenRomaji,
			r.Nationality, sexLabel(r.Sex), prefNumber, r.Prefecture,
			"", "", "", "",
			r.DateOfBirth.Format("2006/01/02"), "", "", r.Grade, "", "",
		)
	}

	if err := b.recordEmission(ctx, ReportFederationCSV, meetID, nil, userID); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// EmitRollCall returns the roll-call sheet for one heat: one row per
// assignment ordered by lane, with a check column.
func (b *Builder) EmitRollCall(ctx context.Context, meetID, heatID, userID string) ([]RollCallRow, error) {
	rows, err := b.store.RollCallRows(ctx, heatID)
	if err != nil {
		return nil, fmt.Errorf("fetch roll-call rows: %w", err)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].LaneNumber < rows[j].LaneNumber })

	if err := b.recordEmission(ctx, ReportRollCall, meetID, nil, userID); err != nil {
		return nil, err
	}

	return rows, nil
}

// EmitProgram returns one event's program: for each heat, a table of
// (lane, name, team, seed time).
func (b *Builder) EmitProgram(ctx context.Context, meetID, eventID, userID string) ([]ProgramHeat, error) {
	heats, err := b.store.ProgramRows(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("fetch program rows: %w", err)
	}

	sort.SliceStable(heats, func(i, j int) bool { return heats[i].HeatNumber < heats[j].HeatNumber })

	for _, h := range heats {
		sort.SliceStable(h.Rows, func(i, j int) bool { return h.Rows[i].LaneNumber < h.Rows[j].LaneNumber })
	}

	if err := b.recordEmission(ctx, ReportProgram, meetID, &eventID, userID); err != nil {
		return nil, err
	}

	return heats, nil
}

// EmitResultSheet returns the two-line-per-athlete result sheet for one
// heat, with a random four-digit reference number generated per athlete at
// emission time (never persisted).
func (b *Builder) EmitResultSheet(ctx context.Context, meetID, heatID, userID string) ([]ResultSheetRow, error) {
	rows, err := b.store.ResultSheetRows(ctx, heatID)
	if err != nil {
		return nil, fmt.Errorf("fetch result-sheet rows: %w", err)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].LaneNumber < rows[j].LaneNumber })

	for i := range rows {
		ref, err := randomRefNumber()
		if err != nil {
			return nil, fmt.Errorf("generate reference number: %w", err)
		}

		rows[i].RefNumber = ref
	}

	if err := b.recordEmission(ctx, ReportResultSheet, meetID, nil, userID); err != nil {
		return nil, err
	}

	return rows, nil
}

// EmitEmergencyBackup concatenates program tables across every event in the
// meet for the emergency-backup report. PDF typesetting is an external
// collaborator concern; this returns the structured table model.
func (b *Builder) EmitEmergencyBackup(ctx context.Context, meetID, userID string) ([]EmergencyBackupSection, error) {
	sections, err := b.store.EmergencyBackupSections(ctx, meetID)
	if err != nil {
		return nil, fmt.Errorf("fetch emergency-backup sections: %w", err)
	}

	if err := b.recordEmission(ctx, ReportEmergencyBackup, meetID, nil, userID); err != nil {
		return nil, err
	}

	return sections, nil
}

func (b *Builder) recordEmission(ctx context.Context, reportType, meetID string, eventID *string, userID string) error {
	return b.store.RecordEmission(ctx, &Emission{
		ID:         uuid.NewString(),
		ReportType: reportType,
		MeetID:     meetID,
		EventID:    eventID,
		UserID:     userID,
		Timestamp:  b.now(),
	})
}

// randomRefNumber generates the result sheet's non-persisted four-digit
// reference number via crypto/rand rather than math/rand, per DESIGN.md's
// Open Question decision: no reproducibility is required, but a
// predictable sequence is an avoidable footgun regardless.
func randomRefNumber() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%04d", n.Int64()), nil
}
