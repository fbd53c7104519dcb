// Command algoscene plays an algorithm script against a scene of widgets.
//
// Subcommands:
//
//	run       execute the script, optionally serving the HTTP API
//	validate  check the project, script and scene without running
//	timings   print the beat timings of a stored run
//	serve     serve the HTTP API over stored runs
//	version   print the build version
package main
