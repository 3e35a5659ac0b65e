package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/srg/humitemp/internal/sensor"
	"github.com/srg/humitemp/pkg/config"
	"github.com/srg/humitemp/pkg/resource"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <hex>",
	Short: "Decode a raw sensor payload",
	Long: `Decode a notification payload captured from the sensor without connecting.

The payload is given as hex; spaces, ':' and '-' separators and 0x prefixes
are ignored.`,
	Example: `  humitemp decode 001705002d03
  humitemp decode "00 17 05 00 2d 03" --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runDecode,
}

var decodeFormat string

func init() {
	decodeCmd.Flags().StringVarP(&decodeFormat, "format", "f", config.FormatText, "Output format (text, json)")
}

// parseHexPayload parses hex with optional separators
func parseHexPayload(s string) ([]byte, error) {
	cleaned := strings.ReplaceAll(s, " ", "")
	cleaned = strings.ReplaceAll(cleaned, ":", "")
	cleaned = strings.ReplaceAll(cleaned, "-", "")
	cleaned = strings.ReplaceAll(cleaned, "0x", "")
	if cleaned == "" {
		return nil, fmt.Errorf("empty payload")
	}

	data, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("invalid hex data: %w", err)
	}
	return data, nil
}

func runDecode(cmd *cobra.Command, args []string) error {
	if decodeFormat != config.FormatText && decodeFormat != config.FormatJSON {
		return fmt.Errorf("unsupported format %q (must be %s or %s)", decodeFormat, config.FormatText, config.FormatJSON)
	}

	payload, err := parseHexPayload(args[0])
	if err != nil {
		return err
	}

	cmd.SilenceUsage = true

	result, err := sensor.Decode(payload)
	if err != nil {
		return err
	}

	if decodeFormat == config.FormatText {
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "temperature: %.1f°C\nhumidity:    %.1f%%\n", result.Temperature, result.Humidity)
		return err
	}

	printer := newReadingPrinter(config.FormatJSON, false)
	line, err := printer.Line(resource.Success(result))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), line)
	return err
}
