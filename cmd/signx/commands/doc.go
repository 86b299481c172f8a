// Package commands implements the signx CLI.
//
// Every flow command prints the deeplink to render, streams engine events to stdout
// as JSON lines and waits for the flow's terminal event. Interrupting the command
// stops polling.
package commands
