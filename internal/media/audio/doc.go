// Package audio picks the audio stream worth transcribing.
package audio
