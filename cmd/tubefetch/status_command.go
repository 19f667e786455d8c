package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tubefetch/internal/api"
	"tubefetch/internal/daemonctl"
	"tubefetch/internal/ipc"
	"tubefetch/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, dependency, job and playlist status",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := daemonctl.BuildStatusSnapshot(ctx.socketPath(), ctx.configValue())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, status)
			}
			renderStatus(cmd.OutOrStdout(), status, shouldColorize(cmd.OutOrStdout()))
			return nil
		},
	}
	addJSONFlag(cmd, &asJSON, "the raw status document")
	return cmd
}

func renderStatus(out io.Writer, status *ipc.StatusResponse, colorize bool) {
	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(out, line)
	}
	if status.Running {
		fmt.Fprintln(out, renderStatusLine("tubefetch", statusOK, fmt.Sprintf("Running (pid %d, started %s)", status.PID, relativeTime(status.Started)), colorize))
		if status.APIAddress != "" {
			fmt.Fprintln(out, renderStatusLine("HTTP API", statusOK, status.APIAddress, colorize))
		} else {
			fmt.Fprintln(out, renderStatusLine("HTTP API", statusInfo, "Disabled", colorize))
		}
		fmt.Fprintln(out, renderStatusLine("Clients", statusInfo, strconv.Itoa(status.Clients), colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("tubefetch", statusWarn, "Not running (run `tubefetch daemon start`)", colorize))
	}
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Dependencies", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, line := range dependencyLines(status.Dependencies, colorize) {
		fmt.Fprintln(out, line)
	}
	if !status.Running {
		return
	}
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Jobs", colorize) {
		fmt.Fprintln(out, line)
	}
	jobs := append(append([]api.Job(nil), status.ActiveJobs...), status.RecentJobs...)
	if len(jobs) == 0 {
		fmt.Fprintln(out, "No jobs yet")
	} else {
		fmt.Fprint(out, renderTable(jobColumns, jobRows(jobs), nil))
	}
	for _, exec := range status.Executions {
		fmt.Fprintln(out, renderStatusLine("Process "+strconv.Itoa(exec.PID), statusInfo, exec.Command, colorize))
	}
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Playlist", colorize) {
		fmt.Fprintln(out, line)
	}
	if status.Playlist.Total == 0 {
		fmt.Fprintln(out, "Playlist is empty")
		return
	}
	fmt.Fprint(out, renderTable(countColumns, playlistCountRows(status.Playlist.Counts), []string{"Total", strconv.Itoa(status.Playlist.Total)}))
}

func dependencyLines(deps []ipc.DependencyStatus, colorize bool) []string {
	summary := daemonctl.BuildDependencySummary(deps)
	lines := make([]string, 0, len(deps)+1)
	lines = append(lines, renderStatusLine("Summary", statusKindFromSeverity(summary.Severity), summary.Detail, colorize))
	for _, dep := range deps {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusKindFromSeverity(daemonctl.DependencySeverity(dep))
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
	}
	return lines
}

func jobRows(jobs []api.Job) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		target := job.Target
		if target == "" {
			target = "-"
		}
		rows = append(rows, []string{shortID(job.ID), stateLabel(job.Kind), stateLabel(job.State), target, relativeTime(job.Started)})
	}
	return rows
}

func playlistCountRows(counts map[string]int) [][]string {
	rows := make([][]string, 0, len(counts))
	for _, status := range queue.AllStatuses() {
		if n := counts[string(status)]; n > 0 {
			rows = append(rows, []string{stateLabel(string(status)), strconv.Itoa(n)})
		}
	}
	return rows
}
