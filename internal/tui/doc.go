// Package tui is the terminal shell: a bubbletea program with a chat
// viewport, an input line and a connection status line.
//
// The rest of the client talks to the shell through a Bus, which
// implements notify.Presenter by posting messages into the program.
package tui
