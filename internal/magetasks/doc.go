// Package magetasks provides the build tasks used by the Magefile.
//
// Checks such as vet, tests and linters run as concurrent jobs through the
// project's own runner and are reported with its console reporter.
package magetasks
