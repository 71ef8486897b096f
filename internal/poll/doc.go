/*
Package poll drives the periodic sampling of the polling subcommands: take a
sample and print it, then sleep for the interval, and repeat until either the
requested number of samples has been taken or the context gets cancelled.
*/
package poll
