package canonicalization

import (
	"strings"

	"github.com/trackmeet/engine/internal/aliasing"
)

// builtinGradeAliases maps raw school-grade spellings to a fixed code set.
// Empty is always allowed and is handled by the caller before resolution.
var builtinGradeAliases = []aliasing.AliasPattern{
	{Pattern: "小1", Canonical: "E1"},
	{Pattern: "小2", Canonical: "E2"},
	{Pattern: "小3", Canonical: "E3"},
	{Pattern: "小4", Canonical: "E4"},
	{Pattern: "小5", Canonical: "E5"},
	{Pattern: "小6", Canonical: "E6"},
	{Pattern: "中1", Canonical: "J1"},
	{Pattern: "中2", Canonical: "J2"},
	{Pattern: "中3", Canonical: "J3"},
	{Pattern: "高1", Canonical: "H1"},
	{Pattern: "高2", Canonical: "H2"},
	{Pattern: "高3", Canonical: "H3"},
	{Pattern: "大学", Canonical: "U"},
	{Pattern: "一般", Canonical: "OPEN"},
	{Pattern: "社会人", Canonical: "OPEN"},
}

// GradeResolver resolves raw grade values to the fixed grade code set.
// Unlike sex and prefecture, an unmatched (but non-empty) value is not a
// hard error at the resolver level — the importer decides whether to reject
// or pass the raw string through, since the code set is advisory.
type GradeResolver struct {
	configured *aliasing.Resolver
	builtin    *aliasing.Resolver
}

// NewGradeResolver builds a resolver from deployment-supplied aliases plus
// the built-in grade synonym table.
func NewGradeResolver(configured []aliasing.AliasPattern) *GradeResolver {
	return &GradeResolver{
		configured: aliasing.NewResolver(configured),
		builtin:    aliasing.NewResolver(builtinGradeAliases),
	}
}

// Resolve maps a raw grade value to the fixed code set. An empty input
// resolves to ("", true) — grade is optional. An unrecognized non-empty
// value resolves to ("", false); the caller decides how strict to be.
func (r *GradeResolver) Resolve(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", true
	}

	if canonical, ok := r.configured.Resolve(trimmed); ok {
		return canonical, true
	}

	if canonical, ok := r.builtin.Resolve(trimmed); ok {
		return canonical, true
	}

	return "", false
}
