package vikhlinin

import (
	"fmt"
	"io"
	"os"
)

// Report writes the fitted parameters and the optimizer status to w in
// a fixed human-readable layout.
func (p *Profile) Report(w io.Writer) {
	fmt.Fprintln(w, "Fit parameters:")
	fmt.Fprintf(w, "\t- Normalisation: %s\n", p.N0.Format(3))
	fmt.Fprintf(w, "\t- Core radius: %s\n", p.RCore.Format(3))
	fmt.Fprintf(w, "\t- Scale radius: %s\n", p.RScale.Format(3))
	fmt.Fprintf(w, "\t- alpha: %.3f\n", p.Alpha)
	fmt.Fprintf(w, "\t- beta: %.3f\n", p.Beta)
	fmt.Fprintf(w, "\t- epsilon: %.3f\n", p.Epsilon)
	fmt.Fprintln(w, "Optimizer status:")
	fmt.Fprintf(w, "\t- Success: %t\n", p.Success)
	fmt.Fprintf(w, "\t- Message: %s\n", p.Message)
	fmt.Fprintf(w, "\t- Iterations performed: %d\n", p.NIterations)
}

// PrintFitParameters writes the fit report to standard output.
func (p *Profile) PrintFitParameters() {
	p.Report(os.Stdout)
}
