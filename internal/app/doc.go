// Package app wires the client together and supervises it.
//
// Nothing connects until the shell signals ready. Run then checks that
// something listens on the backend port, starts the primary channel
// manager and asks it to connect, and runs the secondary channel, the
// admin server and the connection journal under one errgroup.
package app
