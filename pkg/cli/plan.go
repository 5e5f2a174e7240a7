// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/mchmarny/craftplan/pkg/catalog"
	"github.com/mchmarny/craftplan/pkg/planner"
)

func planCmd() *cli.Command {
	return &cli.Command{
		Name:                  "plan",
		EnableShellCompletion: true,
		Usage:                 "Expand an item and total the machines needed to build it",
		Description: `Expand an item into every intermediate item it requires, in recipe
order, and total the machines needed per machine type.

Machine speed tiers are selected per machine type with --tier machine:tier,
which may be repeated or comma separated. Machines without a tier run at
tier 0.

# Examples

Plan ten engines with the default catalog:
  craftplan plan --item engine --count 10

Faster assemblers, per-machine summary as YAML:
  craftplan plan --item engine --count 10 --tier assembler:1 --summary --format yaml

Use a custom catalog and store the plan in a ConfigMap:
  craftplan plan --item circuit --catalog ./my-catalog --output cm://games/circuit-plan`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "item",
				Aliases:  []string{"i"},
				Usage:    "item to plan for",
				Required: true,
			},
			&cli.FloatFlag{
				Name:    "count",
				Aliases: []string{"n"},
				Usage:   "number of items wanted",
				Value:   1,
			},
			&cli.StringSliceFlag{
				Name:  "tier",
				Usage: "machine speed tier (format: machine:tier, can be repeated)",
			},
			&cli.BoolFlag{
				Name:  "summary",
				Usage: "output per-machine totals instead of the expansion tree",
			},
			catalogFlag,
			outputFlag,
			formatFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if _, err := parseOutputFormat(cmd); err != nil {
				return err
			}

			settings, err := planner.ParseSettings(cmd.StringSlice("tier"))
			if err != nil {
				return fmt.Errorf("invalid --tier: %w", err)
			}

			cat, err := catalog.LoadFrom(ctx, cmd.String("catalog"))
			if err != nil {
				return fmt.Errorf("failed to load catalog: %w", err)
			}

			b := planner.NewBuilder(
				planner.WithVersion(version),
				planner.WithCatalog(cat),
			)

			obj := planner.Objective{
				Item:  strings.TrimSpace(cmd.String("item")),
				Count: cmd.Float("count"),
			}
			p, err := b.Build(ctx, obj, settings)
			if err != nil {
				return fmt.Errorf("failed to plan %q: %w", obj.Item, err)
			}

			if cmd.Bool("summary") {
				return writeOutput(ctx, cmd, p.Summary())
			}
			return writeOutput(ctx, cmd, p)
		},
	}
}
