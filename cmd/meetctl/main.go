// Package main provides meetctl, the operator CLI for roster import, meet
// generation, bib assignment, report emission, and operator-key issuance.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/trackmeet/engine/internal/aliasing"
	"github.com/trackmeet/engine/internal/bibs"
	"github.com/trackmeet/engine/internal/canonicalization"
	"github.com/trackmeet/engine/internal/catalog"
	"github.com/trackmeet/engine/internal/entries"
	"github.com/trackmeet/engine/internal/heats"
	"github.com/trackmeet/engine/internal/operator"
	"github.com/trackmeet/engine/internal/payments"
	"github.com/trackmeet/engine/internal/reports"
	"github.com/trackmeet/engine/internal/roster"
	"github.com/trackmeet/engine/internal/storage"
)

// Version information.
const (
	version = "1.0.0-dev"
	name    = "meetctl"
)

// Batch exit codes, part of the external contract for scripted callers.
const (
	exitOK         = 0
	exitValidation = 2
	exitCapacity   = 3
	exitState      = 4
	exitInternal   = 5
)

// exitCode classifies err into the documented batch exit codes.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK

	case errors.Is(err, entries.ErrValidation),
		errors.Is(err, entries.ErrStandardExceeded),
		errors.Is(err, roster.ErrValidation),
		errors.Is(err, heats.ErrValidation),
		errors.Is(err, heats.ErrNoFallback),
		errors.Is(err, catalog.ErrInvalidOwner),
		errors.Is(err, operator.ErrValidation),
		errors.Is(err, payments.ErrValidation):
		return exitValidation

	case errors.Is(err, entries.ErrCapacity):
		return exitCapacity

	case errors.Is(err, entries.ErrDuplicate),
		errors.Is(err, entries.ErrStateConflict),
		errors.Is(err, payments.ErrStateConflict),
		errors.Is(err, heats.ErrFinalizedExists),
		errors.Is(err, heats.ErrLaneConflict):
		return exitState

	default:
		return exitInternal
	}
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	command := os.Args[1]
	args := os.Args[2:]

	if command == "--version" {
		fmt.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	if command == "--help" || command == "help" {
		printUsage()
		os.Exit(0)
	}

	conn, err := storage.NewConnection(storage.LoadConfig())
	if err != nil {
		log.Fatalf("failed to connect to storage: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()

	if err := executeCommand(ctx, command, args, conn); err != nil {
		log.Printf("%s failed: %v", command, err)
		os.Exit(exitCode(err))
	}
}

func newFlagSet(subcommand string) *flag.FlagSet {
	return flag.NewFlagSet(subcommand, flag.ExitOnError)
}

func executeCommand(ctx context.Context, command string, args []string, conn *storage.Connection) error {
	switch command {
	case "import-roster":
		return runImportRoster(ctx, args, conn)
	case "generate-meet":
		return runGenerateMeet(ctx, args, conn)
	case "assign-bibs":
		return runAssignBibs(ctx, args, conn)
	case "emit-report":
		return runEmitReport(ctx, args, conn)
	case "issue-key":
		return runIssueKey(ctx, args, conn)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func runImportRoster(ctx context.Context, args []string, conn *storage.Connection) error {
	fs := newFlagSet("import-roster")

	var (
		ownerKind    = fs.String("owner-kind", "organization", "owner kind: organization or user")
		ownerID      = fs.String("owner-id", "", "owner organization or user ID")
		file         = fs.String("file", "", "path to the roster CSV file")
		skipExisting = fs.Bool("skip-existing", false, "skip rows matching an existing federation ID")
	)

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *ownerID == "" || *file == "" {
		return fmt.Errorf("--owner-id and --file are required")
	}

	rows, err := readRosterCSV(*file)
	if err != nil {
		return fmt.Errorf("read roster file: %w", err)
	}

	owner := catalog.Owner{Kind: catalog.OwnerKind(*ownerKind)}
	if owner.Kind == catalog.OwnerOrganization {
		owner.OrganizationID = *ownerID
	} else {
		owner.UserID = *ownerID
	}

	aliases, err := aliasing.LoadConfigFromEnv()
	if err != nil {
		return fmt.Errorf("load alias config: %w", err)
	}

	validator := roster.NewValidator(
		canonicalization.NewSexResolver(aliases.SexAliases),
		canonicalization.NewGradeResolver(aliases.GradeAliases),
		canonicalization.NewPrefectureResolver(aliases.PrefectureAliases),
		canonicalization.NewNationalityResolver(aliases.NationalityAliases),
	)
	importer := roster.NewImporter(storage.NewRosterStore(conn), validator)

	summary, err := importer.BulkImportAthletes(ctx, owner, rows, *skipExisting)
	if err != nil {
		return err
	}

	fmt.Printf("created=%d updated=%d skipped=%d errors=%d warnings=%d\n",
		summary.Created, summary.Updated, summary.Skipped, len(summary.Errors), len(summary.Warnings))

	for _, rowErr := range summary.Errors {
		fmt.Printf("  row %d: %s: %s\n", rowErr.RowIndex, rowErr.Field, rowErr.Message)
	}

	return nil
}

// readRosterCSV reads a UTF-8 CSV file with a native-script header row into
// RawRows keyed by column name.
func readRosterCSV(path string) ([]roster.RawRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	header := records[0]
	rows := make([]roster.RawRow, 0, len(records)-1)

	for _, record := range records[1:] {
		row := make(roster.RawRow, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func runGenerateMeet(ctx context.Context, args []string, conn *storage.Connection) error {
	fs := newFlagSet("generate-meet")

	var (
		meetID     = fs.String("meet-id", "", "meet ID")
		regenerate = fs.Bool("regenerate", false, "regenerate non-finalized heats")
	)

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *meetID == "" {
		return fmt.Errorf("--meet-id is required")
	}

	catalogStore := storage.NewCatalogStore(conn)
	heatStore := storage.NewHeatStore(conn)
	entryStore := storage.NewEntryStore(conn)

	svc := heats.NewService(heatStore, entryStore, catalogStore, time.Now)

	summary, err := svc.GenerateMeet(ctx, *meetID, *regenerate)
	if err != nil {
		return err
	}

	fmt.Printf("cascaded=%d generated=%d errors=%d\n", len(summary.Cascaded), len(summary.Generated), len(summary.Errors))

	for _, e := range summary.Errors {
		fmt.Printf("  event %s: %v\n", e.EventID, e.Err)
	}

	return nil
}

func runAssignBibs(ctx context.Context, args []string, conn *storage.Connection) error {
	fs := newFlagSet("assign-bibs")

	meetID := fs.String("meet-id", "", "meet ID")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *meetID == "" {
		return fmt.Errorf("--meet-id is required")
	}

	catalogStore := storage.NewCatalogStore(conn)
	heatStore := storage.NewHeatStore(conn)
	bibStore := storage.NewBibStore(conn)

	svc := bibs.NewService(catalogStore, heatStore, bibStore)

	summary, err := svc.AssignBibs(ctx, *meetID)
	if err != nil {
		return err
	}

	fmt.Printf("assigned=%d\n", summary.Assigned)

	for _, w := range summary.Warnings {
		fmt.Printf("  warning: %v\n", w)
	}

	return nil
}

func runEmitReport(ctx context.Context, args []string, conn *storage.Connection) error {
	fs := newFlagSet("emit-report")

	var (
		reportType = fs.String("type", "", "report type: start-list, meet, federation, roll-call, program, result-sheet, emergency-backup")
		meetID     = fs.String("meet-id", "", "meet ID")
		eventID    = fs.String("event-id", "", "event ID (start-list, program)")
		heatID     = fs.String("heat-id", "", "heat ID (roll-call, result-sheet)")
		userID     = fs.String("user-id", "meetctl", "acting user ID, recorded on the emission")
		out        = fs.String("out", "", "output file path (defaults to stdout)")
	)

	if err := fs.Parse(args); err != nil {
		return err
	}

	builder := reports.NewBuilder(storage.NewReportStore(conn), time.Now)

	var (
		payload []byte
		err     error
	)

	switch *reportType {
	case "start-list":
		payload, err = builder.EmitStartListCSV(ctx, *meetID, *eventID, *userID)
	case "meet":
		payload, err = builder.EmitMeetCSV(ctx, *meetID, *userID)
	case "federation":
		payload, err = builder.EmitFederationCSV(ctx, *meetID, *userID)
	case "roll-call":
		var rows []reports.RollCallRow
		if rows, err = builder.EmitRollCall(ctx, *meetID, *heatID, *userID); err == nil {
			payload, err = json.MarshalIndent(rows, "", "  ")
		}
	case "program":
		var program []reports.ProgramHeat
		if program, err = builder.EmitProgram(ctx, *meetID, *eventID, *userID); err == nil {
			payload, err = json.MarshalIndent(program, "", "  ")
		}
	case "result-sheet":
		var rows []reports.ResultSheetRow
		if rows, err = builder.EmitResultSheet(ctx, *meetID, *heatID, *userID); err == nil {
			payload, err = json.MarshalIndent(rows, "", "  ")
		}
	case "emergency-backup":
		var sections []reports.EmergencyBackupSection
		if sections, err = builder.EmitEmergencyBackup(ctx, *meetID, *userID); err == nil {
			payload, err = json.MarshalIndent(sections, "", "  ")
		}
	default:
		return fmt.Errorf("unknown report type: %s", *reportType)
	}

	if err != nil {
		return err
	}

	if *out == "" {
		_, err = os.Stdout.Write(payload)

		return err
	}

	return os.WriteFile(*out, payload, 0o644)
}

func runIssueKey(ctx context.Context, args []string, conn *storage.Connection) error {
	fs := newFlagSet("issue-key")

	var (
		keyName = fs.String("name", "", "human-readable name for the key")
		perms   = fs.String("permissions", "", "comma-separated permissions: force-approve,generate-meet,assign-bibs,import-roster")
		ttl     = fs.Duration("ttl", 0, "optional expiry duration from now, e.g. 720h (0 = never expires)")
	)

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *keyName == "" || *perms == "" {
		return fmt.Errorf("--name and --permissions are required")
	}

	var permissions []operator.Permission
	for _, p := range strings.Split(*perms, ",") {
		permissions = append(permissions, operator.Permission(strings.TrimSpace(p)))
	}

	svc := operator.NewService(storage.NewOperatorKeyStore(conn), time.Now)

	var expiresAt *time.Time
	if *ttl > 0 {
		t := time.Now().Add(*ttl)
		expiresAt = &t
	}

	plaintext, key, err := svc.Issue(ctx, *keyName, permissions, expiresAt)
	if err != nil {
		return err
	}

	fmt.Printf("issued key %q (id=%s)\n", key.Name, key.ID)
	fmt.Printf("plaintext (record this now, it will not be shown again): %s\n", plaintext)

	return nil
}

func printUsage() {
	fmt.Printf(`%s v%s - operator CLI for the meet management service

USAGE:
    %s [OPTIONS] COMMAND

COMMANDS:
    import-roster   Bulk import athletes from a roster CSV file
    generate-meet   Cascade NCG entries and generate heats for every event in a meet
    assign-bibs     Assign bib numbers across the generated heats of a meet
    emit-report     Emit a start list, program, roll call, result sheet, or export
    issue-key       Mint a new operator key for privileged HTTP operations

OPTIONS:
    --help     Show this help message
    --version  Show version information

EXIT CODES:
    0  success
    2  validation error
    3  capacity error
    4  state error
    5  internal error

ENVIRONMENT VARIABLES:
    DATABASE_URL    PostgreSQL connection string (REQUIRED)

EXAMPLES:
    %s import-roster --owner-kind=organization --owner-id=org-1 --file=roster.csv
    %s generate-meet --meet-id=meet-1 --regenerate
    %s assign-bibs --meet-id=meet-1
    %s emit-report --type=start-list --meet-id=meet-1 --event-id=evt-1 --out=start-list.csv
    %s issue-key --name="race-day operator" --permissions=force-approve,assign-bibs --ttl=720h
`, name, version, name, name, name, name, name, name)
}
