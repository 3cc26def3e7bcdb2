// Package main runs the multi task controller against the simulated arm.
package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"go.viam.com/taskik/logging"
)

const (
	flagConfig   = "config"
	flagTasks    = "tasks"
	flagDuration = "duration"
	flagInitial  = "initial"
	flagDebug    = "debug"
	flagJoints   = "joints"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	var logger logging.Logger
	return &cli.App{
		Name:  "taskik",
		Usage: "track prioritized Cartesian tasks on a simulated redundant arm",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				logger = logging.NewDebugLogger("taskik")
			} else {
				logger = logging.NewLogger("taskik")
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "run the controller until every task converges or the duration elapses",
				UsageText: "taskik run --tasks FILE [--config FILE] [--duration D] [--initial q1,q2,...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    flagConfig,
						Aliases: []string{"c"},
						Usage:   "load configuration from `FILE`, the built in arm is used if unset",
					},
					&cli.StringFlag{
						Name:     flagTasks,
						Aliases:  []string{"t"},
						Required: true,
						Usage:    "read the task list from `FILE` as {\"links\": [...], \"tasks\": [...]}, - for stdin",
					},
					&cli.DurationFlag{
						Name:  flagDuration,
						Value: defaultDuration,
						Usage: "stop after this long even if tasks are pending",
					},
					&cli.Float64SliceFlag{
						Name:  flagInitial,
						Usage: "initial joint positions in radians",
					},
				},
				Action: func(c *cli.Context) error {
					return runAction(c, logger)
				},
			},
			{
				Name:  "model",
				Usage: "print the link poses of the configured chain",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    flagConfig,
						Aliases: []string{"c"},
						Usage:   "load configuration from `FILE`, the built in arm is used if unset",
					},
					&cli.Float64SliceFlag{
						Name:  flagJoints,
						Usage: "joint positions in radians, zero if unset",
					},
				},
				Action: func(c *cli.Context) error {
					return modelAction(c)
				},
			},
		},
	}
}
