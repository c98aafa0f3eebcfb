package cleaner

import "errors"

// ErrInvalidInput marks eagerly-detected problems with the supplied data or
// configuration. The wrapped message names the offending field.
var ErrInvalidInput = errors.New("invalid input")

// ErrDegenerateSpectrum marks spectra that cannot support the requested
// analysis: a window longer than the available samples, or a detailed
// threshold window that resolves to zero frequency bins.
var ErrDegenerateSpectrum = errors.New("degenerate spectrum")
