package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/secmon-lab/taskrelay/pkg/domain/model"
	"github.com/secmon-lab/taskrelay/pkg/domain/types"
)

var (
	bold  = color.New(color.Bold).SprintFunc()
	faint = color.New(color.Faint).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
)

var statusColors = map[types.TaskStatus]*color.Color{
	types.TaskStatusNew:       color.New(color.FgCyan),
	types.TaskStatusStarted:   color.New(color.FgYellow),
	types.TaskStatusCompleted: color.New(color.FgGreen),
}

func colorStatus(s types.TaskStatus) string {
	c, ok := statusColors[s]
	if !ok {
		return s.String()
	}
	return c.Sprint(s.String())
}

func actionLabel(a *model.Action) string {
	if a == nil {
		return faint("(no action)")
	}
	return a.Integration() + "." + a.Action()
}

func renderTaskList(w io.Writer, tasks []*model.Task) {
	if len(tasks) == 0 {
		_, _ = fmt.Fprintln(w, faint("no tasks"))
		return
	}
	for _, t := range tasks {
		_, _ = fmt.Fprintf(w, "%s  %-9s  %3.0f%%  %-24s  %s\n",
			bold(fmt.Sprintf("#%-4d", t.ID)),
			colorStatus(t.Status),
			t.Progress*100,
			actionLabel(t.Action),
			t.Description,
		)
	}
}

func renderTask(w io.Writer, t *model.Task) {
	_, _ = fmt.Fprintf(w, "%s %s\n", bold(fmt.Sprintf("Task #%d", t.ID)), colorStatus(t.Status))
	_, _ = fmt.Fprintf(w, "  Description: %s\n", t.Description)
	_, _ = fmt.Fprintf(w, "  Progress:    %.0f%%\n", t.Progress*100)
	_, _ = fmt.Fprintf(w, "  Created:     %s\n", t.CreatedAt.Format(time.RFC3339))
	_, _ = fmt.Fprintf(w, "  Updated:     %s\n", t.UpdatedAt.Format(time.RFC3339))
	if t.Action == nil {
		_, _ = fmt.Fprintf(w, "  Action:      %s\n", actionLabel(nil))
		return
	}
	_, _ = fmt.Fprintf(w, "  Action:      %s (webhook: %s)\n", actionLabel(t.Action), t.Action.Webhook())
	if args, err := json.MarshalIndent(t.Action.Args(), "    ", "  "); err == nil {
		_, _ = fmt.Fprintf(w, "  Args:\n    %s\n", args)
	}
}

func renderDispatchResult(w io.Writer, r *model.DispatchResult) {
	if r == nil {
		return
	}
	status := green("ok")
	if !r.Success {
		status = red("failed")
	}
	_, _ = fmt.Fprintf(w, "%s %s via %s (%s)\n", bold("Dispatch"), status, r.Channel, r.KindName())
	if r.Error != "" {
		_, _ = fmt.Fprintf(w, "  Error: %s\n", red(r.Error))
	}

	var detail any = r.Output
	if r.Output == nil {
		detail = r.Body
	}
	if detail == nil {
		return
	}
	if data, err := json.MarshalIndent(detail, "  ", "  "); err == nil {
		_, _ = fmt.Fprintf(w, "  %s\n", data)
	}
}
