package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/mchmarny/craftplan/pkg/serializer"
)

const envCatalog = "CRAFTPLAN_CATALOG"

var (
	outputFlag = &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "output destination: file path or ConfigMap URI (cm://namespace/name); default stdout",
	}

	formatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"t"},
		Value:   string(serializer.FormatTable),
		Usage:   fmt.Sprintf("output format (%v)", serializer.SupportedFormats()),
	}

	catalogFlag = &cli.StringFlag{
		Name:    "catalog",
		Aliases: []string{"c"},
		Usage:   "catalog source: directory, file, http(s) URL, cm://namespace/name or oci://registry/repo:tag; default embedded",
		Sources: cli.EnvVars(envCatalog),
	}
)

// parseOutputFormat reads the --format flag.
func parseOutputFormat(cmd *cli.Command) (serializer.Format, error) {
	f, err := serializer.ParseFormat(cmd.String("format"))
	if err != nil {
		return "", fmt.Errorf("invalid --format: %w", err)
	}
	return f, nil
}

// writeOutput serializes v to the --output destination in the --format encoding.
func writeOutput(ctx context.Context, cmd *cli.Command, v any) error {
	format, err := parseOutputFormat(cmd)
	if err != nil {
		return err
	}

	ser, err := serializer.NewFileWriterOrStdout(format, cmd.String("output"))
	if err != nil {
		return fmt.Errorf("failed to create output writer: %w", err)
	}
	defer func() {
		if closer, ok := ser.(serializer.Closer); ok {
			if err := closer.Close(); err != nil {
				slog.Warn("failed to close serializer", "error", err)
			}
		}
	}()

	return ser.Serialize(ctx, v)
}
