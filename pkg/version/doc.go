// Package version parses and orders the loosely dotted release numbers
// used in application descriptors.
package version
