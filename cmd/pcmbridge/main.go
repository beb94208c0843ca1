// ABOUTME: Entry point for the pcmbridge CLI
// ABOUTME: Streams PCM to and from audio devices and encodes WAVE files
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
