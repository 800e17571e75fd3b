// Package reconcile runs the text-completion passes over a finished
// transcript: the punctuation and casing correction applied once at
// finalize, and summary/insight derivation requested against a committed
// version.
//
// Correction is cosmetic. Any provider failure degrades to the uncorrected
// text. Word fidelity is requested from the model and checked afterwards,
// but the check only reports drift unless strict fidelity is enabled.
package reconcile
