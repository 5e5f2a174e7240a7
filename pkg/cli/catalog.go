package cli

import (
	"context"
	"fmt"
	"strings"

	ociv1 "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/urfave/cli/v3"

	"github.com/mchmarny/craftplan/pkg/catalog"
	"github.com/mchmarny/craftplan/pkg/oci"
)

func catalogCmd() *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "Show, validate or publish recipe and machine tables",
		Commands: []*cli.Command{
			catalogShowCmd(),
			catalogValidateCmd(),
			catalogPushCmd(),
		},
	}
}

func catalogShowCmd() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Print the catalog",
		Flags: []cli.Flag{
			catalogFlag,
			outputFlag,
			formatFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if _, err := parseOutputFormat(cmd); err != nil {
				return err
			}
			cat, err := catalog.LoadFrom(ctx, cmd.String("catalog"))
			if err != nil {
				return fmt.Errorf("failed to load catalog: %w", err)
			}
			return writeOutput(ctx, cmd, cat)
		},
	}
}

func catalogValidateCmd() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Check a catalog for unknown machines, empty speed tables and reserved names",
		Flags: []cli.Flag{
			catalogFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cat, err := catalog.LoadFrom(ctx, cmd.String("catalog"))
			if err != nil {
				return fmt.Errorf("catalog is invalid: %w", err)
			}
			_, err = fmt.Fprintf(cmd.Root().Writer, "catalog %s is valid: %d recipes, %d machines, %d items\n",
				cat.Source(), len(cat.Recipes), len(cat.Machines), len(cat.Items()))
			return err
		},
	}
}

func catalogPushCmd() *cli.Command {
	return &cli.Command{
		Name:  "push",
		Usage: "Publish a catalog directory to an OCI registry",
		Description: `Validates the catalog in --dir layered over the embedded defaults, then
packs recipes.yaml and machines.yaml as an OCI artifact and pushes it.
Registry credentials come from the Docker credential store.

  craftplan catalog push --dir ./my-catalog --ref oci://ghcr.io/acme/catalog:v1`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "dir",
				Usage:    "directory holding recipes.yaml and/or machines.yaml",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "ref",
				Usage:    "destination reference (oci://registry/repository:tag)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "tag",
				Usage: "override the tag in --ref",
			},
			&cli.BoolFlag{
				Name:  "plain-http",
				Usage: "use HTTP instead of HTTPS for the registry",
			},
			&cli.BoolFlag{
				Name:  "insecure-tls",
				Usage: "skip registry TLS certificate verification",
			},
			&cli.StringSliceFlag{
				Name:  "annotation",
				Usage: "manifest annotation (format: key=value, can be repeated)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := cmd.String("dir")
			if _, err := catalog.LoadFrom(ctx, dir); err != nil {
				return fmt.Errorf("refusing to push invalid catalog: %w", err)
			}

			ref, err := oci.ParseReference(cmd.String("ref"))
			if err != nil {
				return fmt.Errorf("invalid --ref: %w", err)
			}
			if tag := cmd.String("tag"); tag != "" {
				ref = ref.WithTag(tag)
			}

			annotations, err := parseAnnotations(cmd.StringSlice("annotation"))
			if err != nil {
				return err
			}
			if _, ok := annotations[ociv1.AnnotationVersion]; !ok {
				annotations[ociv1.AnnotationVersion] = version
			}

			res, err := oci.Push(ctx, oci.PushOptions{
				SourceDir:   dir,
				Reference:   ref,
				PlainHTTP:   cmd.Bool("plain-http"),
				InsecureTLS: cmd.Bool("insecure-tls"),
				Annotations: annotations,
			})
			if err != nil {
				return fmt.Errorf("failed to push catalog: %w", err)
			}

			_, err = fmt.Fprintf(cmd.Root().Writer, "pushed %s@%s\n", res.Reference, res.Digest)
			return err
		},
	}
}

// parseAnnotations converts key=value pairs into a map.
func parseAnnotations(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid annotation %q, expected key=value", p)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}
