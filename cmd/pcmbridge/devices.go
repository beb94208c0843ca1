// ABOUTME: Informational commands
// ABOUTME: devices reports the default devices, version prints build information
package main

import (
	"fmt"

	"github.com/Resonate-Protocol/pcmbridge/internal/version"
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/device"
	"github.com/spf13/cobra"
)

func devicesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "Show the default output and input devices of the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := a.backend()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "backend: %s\n", backend.Name())
			if ref := a.deviceRef(); !ref.IsDefault() {
				fmt.Fprintf(out, "selected: name=%q id=%q\n", ref.Name, ref.ID)
			}
			for _, dir := range []device.Direction{device.Output, device.Input} {
				ref, err := backend.DefaultDevice(dir)
				if err != nil {
					fmt.Fprintf(out, "%-7s unavailable: %v\n", dir.String()+":", err)
					continue
				}
				fmt.Fprintf(out, "%-7s %s\n", dir.String()+":", ref)
			}
			return nil
		},
	}
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", version.String(), version.Manufacturer)
		},
	}
}
