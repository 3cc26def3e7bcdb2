package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"
	"gonum.org/v1/gonum/floats"

	"go.viam.com/taskik/controllers/multitask"
	"go.viam.com/taskik/motionplan/ik"
	"go.viam.com/taskik/referenceframe"
)

func printSummary(w io.Writer, res *runResult) {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Link", "Position error", "Orientation error", "Status"})
	for i, link := range res.status.Links {
		posErr, oriErr := "", ""
		if base := i * multitask.TaskParams; base+multitask.TaskParams <= len(res.telemetry.Errors) {
			e := res.telemetry.Errors[base : base+multitask.TaskParams]
			posErr = fmt.Sprintf("%.4f m", floats.Norm(e[:3], 2))
			oriErr = fmt.Sprintf("%.4f rad", floats.Norm(e[3:], 2))
		}
		state := color.New(color.FgYellow).Sprint("pending")
		if i < len(res.status.OnTarget) && res.status.OnTarget[i] {
			state = color.New(color.FgHiGreen).Sprint("on target")
		}
		t.AppendRow(table.Row{i, multitask.MarkerNamespace(ik.LinkID(link)), posErr, oriErr, state})
	}
	fmt.Fprintln(w, t.Render())
	if res.status.Active {
		fmt.Fprintln(w, color.New(color.FgRed).Sprintf("stopped after %v (%d ticks) with pending tasks", res.elapsed, res.ticks))
		return
	}
	fmt.Fprintln(w, color.New(color.FgHiGreen).Sprintf("converged in %v (%d ticks)", res.elapsed, res.ticks))
}

func modelAction(c *cli.Context) error {
	cfg, err := loadConfig(c.String(flagConfig))
	if err != nil {
		return err
	}
	model, err := cfg.LoadModel()
	if err != nil {
		return err
	}
	q := c.Float64Slice(flagJoints)
	if len(q) == 0 {
		q = make([]float64, model.NumJoints())
	}
	inputs := referenceframe.FloatsToInputs(q)

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Link", "Joint", "X", "Y", "Z", "Roll", "Pitch", "Yaw"})
	names := model.JointNames()
	links := make([]referenceframe.LinkID, 0, len(names)+1)
	for i := range names {
		links = append(links, referenceframe.LinkID(i+1))
	}
	links = append(links, referenceframe.EndEffector)
	for _, link := range links {
		pose, err := model.LinkPose(inputs, link)
		if err != nil {
			return err
		}
		joint := ""
		if link != referenceframe.EndEffector {
			joint = names[link-1]
		}
		pt := pose.Point()
		ea := pose.Orientation().EulerAngles()
		t.AppendRow(table.Row{
			multitask.MarkerNamespace(link), joint,
			fmt.Sprintf("%.4f", pt.X), fmt.Sprintf("%.4f", pt.Y), fmt.Sprintf("%.4f", pt.Z),
			fmt.Sprintf("%.4f", ea.Roll), fmt.Sprintf("%.4f", ea.Pitch), fmt.Sprintf("%.4f", ea.Yaw),
		})
	}
	fmt.Fprintln(c.App.Writer, t.Render())
	return nil
}
