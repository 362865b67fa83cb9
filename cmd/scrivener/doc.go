// Command scrivener is the CLI for the scrivener writing service. It
// manages books, chapters, and timelines against the shelf database and
// talks to the scrivenerd daemon for background chapter runs.
package main
