// Package appconfig loads the settings shared by the clinicauth binaries.
//
// Values come from, in increasing precedence: built-in defaults, a YAML file,
// a .env file and the process environment.
package appconfig
