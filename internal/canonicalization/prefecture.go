package canonicalization

import (
	"errors"
	"strings"

	"github.com/trackmeet/engine/internal/aliasing"
)

// ErrUnrecognizedPrefecture is returned when a raw prefecture value matches
// neither the configured aliases nor the 47-prefecture table.
var ErrUnrecognizedPrefecture = errors.New("unrecognized prefecture")

// prefectures is the closed table of Japan's 47 first-level administrative
// divisions, by their common short name (the suffix 都/道/府/県 is stripped
// before comparison, so both "東京" and "東京都" resolve to "東京").
var prefectures = []string{
	"北海道", "青森", "岩手", "宮城", "秋田", "山形", "福島",
	"茨城", "栃木", "群馬", "埼玉", "千葉", "東京", "神奈川",
	"新潟", "富山", "石川", "福井", "山梨", "長野", "岐阜",
	"静岡", "愛知", "三重", "滋賀", "京都", "大阪", "兵庫",
	"奈良", "和歌山", "鳥取", "島根", "岡山", "広島", "山口",
	"徳島", "香川", "愛媛", "高知", "福岡", "佐賀", "長崎",
	"熊本", "大分", "宮崎", "鹿児島", "沖縄",
}

// prefectureSuffixes are stripped from the raw value before table lookup.
var prefectureSuffixes = []string{"都", "道", "府", "県"}

// builtinPrefectureSet indexes the canonical table for O(1) membership checks.
var builtinPrefectureSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(prefectures))
	for _, p := range prefectures {
		set[p] = struct{}{}
	}

	return set
}()

// prefectureNumbers indexes the table by its JIS order, 1-based
// (北海道 = 1 .. 沖縄 = 47).
var prefectureNumbers = func() map[string]int {
	numbers := make(map[string]int, len(prefectures))
	for i, p := range prefectures {
		numbers[p] = i + 1
	}

	return numbers
}()

// PrefectureNumber returns the 1-based JIS code for a canonical prefecture
// name, or 0 when the name is not in the table.
func PrefectureNumber(name string) int {
	return prefectureNumbers[name]
}

// PrefectureResolver resolves raw prefecture values to the 47-prefecture table.
type PrefectureResolver struct {
	configured *aliasing.Resolver
}

// NewPrefectureResolver builds a resolver from deployment-supplied aliases;
// the 47-prefecture table itself is not configurable.
func NewPrefectureResolver(configured []aliasing.AliasPattern) *PrefectureResolver {
	return &PrefectureResolver{configured: aliasing.NewResolver(configured)}
}

// Resolve strips a trailing 都/道/府/県 suffix and matches against the
// 47-prefecture table, consulting deployment-supplied aliases first.
func (r *PrefectureResolver) Resolve(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)

	if canonical, ok := r.configured.Resolve(trimmed); ok {
		return canonical, nil
	}

	if _, ok := builtinPrefectureSet[trimmed]; ok {
		return trimmed, nil
	}

	stripped := trimmed
	for _, suffix := range prefectureSuffixes {
		if strings.HasSuffix(stripped, suffix) && stripped != suffix {
			stripped = strings.TrimSuffix(stripped, suffix)

			break
		}
	}

	if _, ok := builtinPrefectureSet[stripped]; ok {
		return stripped, nil
	}

	return "", ErrUnrecognizedPrefecture
}
