// Package measure turns one frame's landmarks into a calibrated height,
// body-type class and derived weight.
//
// The scale is taken from the shoulders: the pixel distance between them is
// assumed to span a fixed real width (0.4 m by default), which gives a
// metres-per-pixel factor for the frame. Height is the nose-to-heel span in
// pixels times that factor, corrected for the crown sitting above the nose.
// The body type comes from the shoulder-width-to-height ratio and carries an
// assumed BMI, from which a weight is back-computed.
//
// Every function is pure. A value that cannot be computed (a landmark below
// its visibility gate, a zero shoulder span, a missing upstream value) is
// reported as absent and never replaced by a default.
package measure
