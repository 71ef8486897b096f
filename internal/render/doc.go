/*
Package render prints attribute rows and interrupt tables as right-aligned
text columns.

When writing to a terminal, column headers are rendered in bold, and overly
long interrupt device names get shortened to the terminal width. Otherwise,
such as when piping into a file, the output is plain text.
*/
package render
