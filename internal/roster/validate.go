package roster

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/trackmeet/engine/internal/canonicalization"
)

// katakanaPattern matches half-width and full-width katakana plus the
// prolonged-sound mark (ー), the syllabary class phonetic fields must use.
var katakanaPattern = regexp.MustCompile(`^[\x{30A0}-\x{30FF}\x{FF65}-\x{FF9F}ー]+$`)

// Validator canonicalizes and validates RawRows into ValidatedRows.
type Validator struct {
	sex         *canonicalization.SexResolver
	grade       *canonicalization.GradeResolver
	prefecture  *canonicalization.PrefectureResolver
	nationality *canonicalization.NationalityResolver
}

// NewValidator builds a Validator from deployment alias configuration.
func NewValidator(
	sex *canonicalization.SexResolver,
	grade *canonicalization.GradeResolver,
	prefecture *canonicalization.PrefectureResolver,
	nationality *canonicalization.NationalityResolver,
) *Validator {
	return &Validator{sex: sex, grade: grade, prefecture: prefecture, nationality: nationality}
}

// ValidateRow canonicalizes and validates a single row. On success it
// returns a ValidatedRow and no error; on failure it returns a RowError.
func (v *Validator) ValidateRow(index int, row RawRow) (*ValidatedRow, *RowError) {
	family := strings.TrimSpace(row[ColFamily])
	given := strings.TrimSpace(row[ColGiven])

	if family == "" {
		return nil, &RowError{RowIndex: index, Field: ColFamily, Message: "family name is required"}
	}

	if given == "" {
		return nil, &RowError{RowIndex: index, Field: ColGiven, Message: "given name is required"}
	}

	familyPhonetic := strings.TrimSpace(row[ColFamilyPhonetic])
	if !katakanaPattern.MatchString(familyPhonetic) {
		return nil, &RowError{RowIndex: index, Field: ColFamilyPhonetic, Message: "must be katakana"}
	}

	givenPhonetic := strings.TrimSpace(row[ColGivenPhonetic])
	if !katakanaPattern.MatchString(givenPhonetic) {
		return nil, &RowError{RowIndex: index, Field: ColGivenPhonetic, Message: "must be katakana"}
	}

	sex, err := v.sex.Resolve(row[ColSex])
	if err != nil {
		return nil, &RowError{RowIndex: index, Field: ColSex, Message: err.Error()}
	}

	dob, err := parseDOB(row[ColDOB])
	if err != nil {
		return nil, &RowError{RowIndex: index, Field: ColDOB, Message: err.Error()}
	}

	grade, ok := v.grade.Resolve(row[ColGrade])
	if !ok {
		return nil, &RowError{RowIndex: index, Field: ColGrade, Message: "unrecognized grade value"}
	}

	pref, err := v.prefecture.Resolve(row[ColPrefecture])
	if err != nil {
		return nil, &RowError{RowIndex: index, Field: ColPrefecture, Message: err.Error()}
	}

	nationality, ok := v.nationality.Resolve(row[ColNationality])
	if !ok {
		return nil, &RowError{RowIndex: index, Field: ColNationality, Message: "unrecognized nationality value"}
	}

	federationID := strings.TrimSpace(row[ColFederationID])

	return &ValidatedRow{
		RowIndex:         index,
		FamilyName:       family,
		GivenName:        given,
		FamilyPhonetic:   familyPhonetic,
		GivenPhonetic:    givenPhonetic,
		Sex:              sex,
		DateOfBirth:      dob,
		Grade:            grade,
		Nationality:      nationality,
		RegistrationPref: pref,
		FederationID:     federationID,
		FamilyRomaji:     strings.TrimSpace(row[ColFamilyRomaji]),
		GivenRomaji:      strings.TrimSpace(row[ColGivenRomaji]),
	}, nil
}

func parseDOB(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)

	for _, layout := range []string{"2006-01-02", "2006/01/02"} {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}

	return "", fmt.Errorf("invalid date of birth %q, expected YYYY-MM-DD or YYYY/MM/DD", trimmed)
}
