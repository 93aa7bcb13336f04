// Package simulate provides scripted in-memory AI providers. They stand in
// for the real transcription endpoints in tests and in the demo dispatch
// route.
package simulate
