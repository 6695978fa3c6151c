package verify

import "github.com/fatih/color"

// PrintReport prints a verification report to stdout, a green check
// for a clean module and otherwise a red cross header with the violation
// count followed by one red line per violation.
func PrintReport(errs []error) {
	if len(errs) == 0 {
		color.Green("✓ module is well-formed")
		return
	}
	color.Red("✗ %d invariant violation(s):", len(errs))
	for _, e := range errs {
		color.Red("  - %s", e.Error())
	}
}
