// ABOUTME: Version information for pcmbridge
// ABOUTME: Defines version constants used across the CLI and logs
package version

const (
	// Version is the current release
	Version = "0.3.0"

	// Product is the display name
	Product = "pcmbridge"

	// Manufacturer is the project owner
	Manufacturer = "Resonate Protocol"
)

// String returns the product and version for banners
func String() string {
	return Product + " " + Version
}
