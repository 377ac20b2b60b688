package main

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"matchbot/internal/device"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check adb connectivity, device availability, and config validity",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()

		var version string
		var serials []string

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			client := device.NewClient(cfg.Device.Address)
			v, err := client.Version(gctx)
			if err != nil {
				return fmt.Errorf("adb server at %s unreachable: %w", cfg.Device.Address, err)
			}
			version = v

			serials, err = client.Devices(gctx)
			if err != nil {
				return fmt.Errorf("device listing failed: %w", err)
			}
			return nil
		})

		var configErr error
		g.Go(func() error {
			configErr = cfg.Validate()
			return nil
		})

		var tesseractErr error
		if cfg.Perception.Provider == "tesseract" {
			g.Go(func() error {
				_, tesseractErr = exec.LookPath(cfg.Perception.TesseractPath)
				return nil
			})
		}

		adbErr := g.Wait()

		report("adb server", adbErr, fmt.Sprintf("version %s at %s", version, cfg.Device.Address))
		if adbErr == nil {
			if len(serials) == 0 {
				report("devices", fmt.Errorf("no devices connected"), "")
			} else {
				report("devices", nil, strings.Join(serials, ", "))
			}
		}
		report("config", configErr, "valid")
		if cfg.Perception.Provider == "tesseract" {
			report("tesseract", tesseractErr, cfg.Perception.TesseractPath)
		}

		if adbErr != nil || configErr != nil || tesseractErr != nil || len(serials) == 0 {
			return fmt.Errorf("checks failed")
		}
		return nil
	},
}

func report(check string, err error, ok string) {
	if err != nil {
		fmt.Printf("  ✗ %-10s %v\n", check, err)
		return
	}
	fmt.Printf("  ✓ %-10s %s\n", check, ok)
}
