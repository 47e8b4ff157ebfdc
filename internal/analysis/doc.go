// Package analysis holds the numeric core: nearest-pose lookup, PCA line
// fitting and APE/RPE trajectory comparison. Every function is a pure
// transformation of its inputs.
package analysis
