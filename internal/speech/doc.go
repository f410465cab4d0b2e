// Package speech plays synthesized replies. Clips are addressed by their
// path on the backend; a .wav clip that fails to play is retried once as .mp3.
package speech
