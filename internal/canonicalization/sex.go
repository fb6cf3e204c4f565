// Package canonicalization normalizes raw roster field values (sex, grade,
// prefecture, nationality) to the closed canonical vocabularies the entry
// lifecycle and roster importer require.
//
// Each field has a built-in synonym table; a deployment may extend it with
// additional patterns via the aliasing package's YAML configuration, which
// is consulted first (first-match-wins across config-then-builtin).
package canonicalization

import (
	"errors"
	"strings"

	"github.com/trackmeet/engine/internal/aliasing"
)

// ErrUnrecognizedSex is returned when a raw sex value matches neither the
// configured aliases nor the built-in synonym table.
var ErrUnrecognizedSex = errors.New("unrecognized sex value")

// builtinSexAliases is the closed synonym table mapping raw spreadsheet
// values to {M, F}. Consulted after any deployment-supplied aliases.
var builtinSexAliases = []aliasing.AliasPattern{
	{Pattern: "M", Canonical: "M"},
	{Pattern: "m", Canonical: "M"},
	{Pattern: "男", Canonical: "M"},
	{Pattern: "男子", Canonical: "M"},
	{Pattern: "男性", Canonical: "M"},
	{Pattern: "F", Canonical: "F"},
	{Pattern: "f", Canonical: "F"},
	{Pattern: "女", Canonical: "F"},
	{Pattern: "女子", Canonical: "F"},
	{Pattern: "女性", Canonical: "F"},
}

// SexResolver resolves raw sex values to the canonical {M, F} vocabulary.
type SexResolver struct {
	configured *aliasing.Resolver
	builtin    *aliasing.Resolver
}

// NewSexResolver builds a resolver from deployment-supplied aliases plus the
// built-in synonym table.
func NewSexResolver(configured []aliasing.AliasPattern) *SexResolver {
	return &SexResolver{
		configured: aliasing.NewResolver(configured),
		builtin:    aliasing.NewResolver(builtinSexAliases),
	}
}

// Resolve maps a raw roster value to {M, F}.
func (r *SexResolver) Resolve(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)

	if canonical, ok := r.configured.Resolve(trimmed); ok {
		return canonical, nil
	}

	if canonical, ok := r.builtin.Resolve(trimmed); ok {
		return canonical, nil
	}

	return "", ErrUnrecognizedSex
}
