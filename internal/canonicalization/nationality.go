package canonicalization

import (
	"strings"

	"github.com/trackmeet/engine/internal/aliasing"
)

// DefaultNationality is assumed when the raw roster value is empty.
const DefaultNationality = "JPN"

// builtinNationalityAliases maps common native-script country names to their
// IOC three-letter code. Unrecognized values that already look like a
// three-letter alpha code are accepted as-is by Resolve, per the importer's
// "otherwise accept verbatim" rule.
var builtinNationalityAliases = []aliasing.AliasPattern{
	{Pattern: "日本", Canonical: "JPN"},
	{Pattern: "中国", Canonical: "CHN"},
	{Pattern: "韓国", Canonical: "KOR"},
	{Pattern: "アメリカ", Canonical: "USA"},
	{Pattern: "ブラジル", Canonical: "BRA"},
	{Pattern: "ケニア", Canonical: "KEN"},
	{Pattern: "エチオピア", Canonical: "ETH"},
}

// NationalityResolver resolves raw nationality values to an IOC 3-letter code.
type NationalityResolver struct {
	configured *aliasing.Resolver
	builtin    *aliasing.Resolver
}

// NewNationalityResolver builds a resolver from deployment-supplied aliases
// plus the built-in nationality synonym table.
func NewNationalityResolver(configured []aliasing.AliasPattern) *NationalityResolver {
	return &NationalityResolver{
		configured: aliasing.NewResolver(configured),
		builtin:    aliasing.NewResolver(builtinNationalityAliases),
	}
}

// Resolve maps a raw nationality value to an IOC 3-letter code.
//
//   - Empty input resolves to DefaultNationality ("JPN").
//   - A configured or built-in alias match resolves to its canonical code.
//   - A bare 3-letter alpha code is accepted as-is.
//   - Anything else is returned unresolved (ok=false); the caller decides
//     whether to reject the row.
func (r *NationalityResolver) Resolve(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return DefaultNationality, true
	}

	if canonical, ok := r.configured.Resolve(trimmed); ok {
		return canonical, true
	}

	if canonical, ok := r.builtin.Resolve(trimmed); ok {
		return canonical, true
	}

	if isThreeLetterAlpha(trimmed) {
		return strings.ToUpper(trimmed), true
	}

	return "", false
}

func isThreeLetterAlpha(s string) bool {
	if len(s) != 3 {
		return false
	}

	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}

	return true
}
