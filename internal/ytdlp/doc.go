// Package ytdlp drives the yt-dlp binary through an ordered list of fallback
// invocation strategies.
//
// Strategies come from a declarative descriptor table; BuildStrategies layers
// each descriptor on one base command and Engine.Run executes them in order,
// classifying every failed attempt with the pure Classify function. Rate
// limited attempts wait a cooldown before moving on, forbidden attempts move on
// immediately, a restricted delivery protocol marker disables the remaining
// plain-client strategies, and anything unrecognised ends the run.
//
// The package also owns the argv builders for video and audio downloads and
// the flat-playlist Resolver used to populate the playlist store.
package ytdlp
