package gen

import (
	"strings"

	"github.com/hsmgen/hsmgen/internal/model"
)

// Ident turns a state's absolute path into a flat, language-neutral
// identifier fragment, e.g. ["A", "B"] -> "A_B", [] (root) -> "root".
func Ident(s *model.State) string {
	if len(s.Path) == 0 {
		return "root"
	}
	return strings.Join(s.Path, "_")
}

// ProcName returns the name of one of the four lifecycle procedures
// for s: "_start", "_entry", "_exit", or "_do".
func ProcName(s *model.State, suffix string) string {
	return Ident(s) + "_" + suffix
}

// ActiveChildField returns the name of the function-pointer slot on
// the Context that records s's currently active child (for OR
// composites) or, for the document root, the slot that signals the
// machine is still running.
func ActiveChildField(s *model.State) string {
	return Ident(s) + "_active"
}

// HistoryField returns the name of the slot that records s's
// last-active child for shallow history restoration.
func HistoryField(s *model.State) string {
	return Ident(s) + "_history"
}

// DecisionDispatchName returns the generated dispatcher function name
// for decision d.
func DecisionDispatchName(d *model.Decision) string {
	return "decide_" + d.Name
}
