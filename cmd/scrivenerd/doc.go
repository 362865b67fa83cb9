// Command scrivenerd is the background daemon. It owns the shelf store,
// runs chapter writing pipelines, and serves the local HTTP API that the
// scrivener CLI talks to.
package main
