// Package apps loads the installed application descriptors from a
// drop-in directory and publishes them as the shared app registry
// document.
package apps
