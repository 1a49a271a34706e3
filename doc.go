// Package vikhlinin fits the Vikhlinin et al. (2006) density model to
// radial gas-density profiles of galaxy clusters.
//
// The entry point is NewProfile, which takes a radius series and a
// density series (see the units subpackage) and immediately fits the
// six-parameter model by bounded quasi-Newton minimization of the
// squared log10 residuals. The fitted object carries the best-fit
// parameters with their units re-attached, the reconstructed density
// curve, and the optimizer's convergence report:
//
//	profile, err := vikhlinin.NewProfile(radii, density)
//	if err != nil {
//		return err
//	}
//	profile.PrintFitParameters()
//
// Starting guesses and box bounds default to values that work for
// typical cluster profiles; WithStart and WithBounds override them, and
// MACSISBounds provides a preset tuned for MACSIS simulation haloes.
// A fit that stops on the iteration cap is reported through Success and
// Message rather than an error, matching how profile pipelines prefer
// a usable best effort over a hard failure.
package vikhlinin
