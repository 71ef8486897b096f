/*
Package cli implements the xproc command: it parses the command line, sets up
logging, and then runs the selected subcommand, reporting errors as exit
codes.
*/
package cli
