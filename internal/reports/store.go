package reports

import "context"

// Store supplies every report's flat, precomputed rows via explicit joins,
// one query per report, and
// records each successful emission.
type Store interface {
	StartListRows(ctx context.Context, eventID string) ([]StartListRow, error)
	MeetExportRows(ctx context.Context, meetID string) ([]MeetExportRow, error)
	FederationRows(ctx context.Context, meetID string) ([]FederationRow, error)
	RollCallRows(ctx context.Context, heatID string) ([]RollCallRow, error)
	ProgramRows(ctx context.Context, eventID string) ([]ProgramHeat, error)

	// ResultSheetRows returns rows with RefNumber left blank; the Builder
	// fills it in at emission time via crypto/rand.
	ResultSheetRows(ctx context.Context, heatID string) ([]ResultSheetRow, error)

	EmergencyBackupSections(ctx context.Context, meetID string) ([]EmergencyBackupSection, error)

	RecordEmission(ctx context.Context, emission *Emission) error
}
