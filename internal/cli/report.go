package cli

import (
	"fmt"
	"time"

	"github.com/danieljhkim/comfydepot/internal/catalog"
	"github.com/danieljhkim/comfydepot/internal/engine"
	"github.com/danieljhkim/comfydepot/internal/planner"
)

// printReport renders a sync report.
func printReport(report *engine.SyncReport) {
	title := fmt.Sprintf("Sync %s", kindTitle(report.Kind))
	if report.DryRun {
		title = "Dry Run: " + title
	}
	PrintSection(title)
	PrintLabelValue("Root", report.Root)
	PrintLabelValue("Run", report.RunID)
	_, _ = fmt.Fprintln(stdout)

	for _, o := range report.Outcomes {
		printOutcome(o)
	}

	if len(report.Orphans) > 0 {
		_, _ = fmt.Fprintln(stdout)
		PrintWarning(fmt.Sprintf("%s not in the catalog (see '%s orphans'):",
			PrintCount(len(report.Orphans), "entry", "entries"), kindCommand(report.Kind)))
		PrintList(orphanNames(report.Orphans), 1)
	}

	PrintSeparator()
	_, _ = fmt.Fprintf(stdout, "  %d installed, %d updated, %d removed, %d skipped, %d failed in %s\n",
		report.Installed, report.Updated, report.Removed, report.Skipped, report.Errors,
		report.Duration().Round(100*time.Millisecond))
}

func printOutcome(o engine.Outcome) {
	label := o.Action.Item.Label()
	switch o.Status {
	case engine.StatusFailed:
		PrintError(fmt.Sprintf("%s: %s", label, o.Error))
	case engine.StatusSkipped:
		PrintSkip(label, o.Reason)
	default:
		PrintSuccess(fmt.Sprintf("%s %s", pastTense(o.Type), label))
	}
	if o.Warning != "" {
		PrintWarning(fmt.Sprintf("%s: %s", label, o.Warning))
	}
}

func pastTense(t planner.ActionType) string {
	switch t {
	case planner.ActionInstall:
		return "installed"
	case planner.ActionUpdate:
		return "updated"
	case planner.ActionRemove:
		return "removed"
	default:
		return string(t)
	}
}

// printOrphanReport renders the result of an orphan deletion.
func printOrphanReport(report *engine.OrphanReport) {
	for _, o := range report.Outcomes {
		name := catalog.SlotKey(o.Orphan.RelativePath, o.Orphan.Name)
		if o.Err != nil {
			PrintError(fmt.Sprintf("%s: %s", name, o.Error))
			continue
		}
		PrintSuccess(fmt.Sprintf("%s: %s", name, o.Disposition))
	}
}

func orphanNames(orphans []planner.Orphan) []string {
	names := make([]string, 0, len(orphans))
	for _, o := range orphans {
		name := catalog.SlotKey(o.RelativePath, o.Name)
		if o.SizeBytes > 0 {
			name = fmt.Sprintf("%s (%s)", name, humanSize(o.SizeBytes))
		}
		names = append(names, name)
	}
	return names
}

// orphanKeys returns the slot keys DeleteOrphansRequest.Names matches on.
func orphanKeys(orphans []planner.Orphan) []string {
	keys := make([]string, 0, len(orphans))
	for _, o := range orphans {
		keys = append(keys, catalog.SlotKey(o.RelativePath, o.Name))
	}
	return keys
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func kindTitle(kind catalog.Kind) string {
	if kind == catalog.KindModel {
		return "Models"
	}
	return "Custom Nodes"
}

func kindCommand(kind catalog.Kind) string {
	if kind == catalog.KindModel {
		return "comfydepot models"
	}
	return "comfydepot nodes"
}
