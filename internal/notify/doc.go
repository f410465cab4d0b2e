// Package notify carries user-visible output from the connection core to the
// shell. Client-generated strings are localized through a golang.org/x/text
// catalog; text received from the backend is shown verbatim.
package notify
