// ABOUTME: WAVE file encoder package
// ABOUTME: Writes PCM batches to RIFF/WAVE containers through go-audio
// Package wavfile encodes PCM frames into WAVE files.
//
// An Encoder follows a fixed protocol: Open the destination, negotiate the
// client sample format, write any number of batches, then Close to
// finalize the header. Every failure is an *audio.Error whose Kind names
// the step that failed.
//
// Save runs the whole protocol for a single in-memory buffer:
//
//	err := wavfile.Save("tone.wav", samples, wavfile.Options{SampleRate: 48000, Channels: 1})
package wavfile
