// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

// Package significance implements the significance engine: comparing
// a new context snapshot against the last-analyzed baseline and
// deciding whether the change warrants a fresh LLM analysis.
package significance

// Kind tags a Decision's variant.
type Kind int

const (
	Unchanged Kind = iota
	Minor
	Significant
	Forced
)

func (k Kind) String() string {
	switch k {
	case Unchanged:
		return "Unchanged"
	case Minor:
		return "Minor"
	case Significant:
		return "Significant"
	case Forced:
		return "Forced"
	default:
		return "Unknown"
	}
}

// Decision is the significance engine's tagged classification of a
// (prev, next) snapshot pair. Reasons is empty for Unchanged; it holds
// one or more short machine-readable strings for the other variants.
type Decision struct {
	Kind    Kind
	Reasons []string
}

// Triggers reports whether this decision should invoke the analysis
// pipeline. Only Significant and Forced do.
func (d Decision) Triggers() bool {
	return d.Kind == Significant || d.Kind == Forced
}

func unchanged() Decision                    { return Decision{Kind: Unchanged} }
func minor(reasons ...string) Decision       { return Decision{Kind: Minor, Reasons: reasons} }
func significant(reasons ...string) Decision { return Decision{Kind: Significant, Reasons: reasons} }
func forced(reason string) Decision          { return Decision{Kind: Forced, Reasons: []string{reason}} }
