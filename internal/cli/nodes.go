package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/comfydepot/internal/catalog"
	"github.com/danieljhkim/comfydepot/internal/engine"
)

var (
	nodesSyncDryRun         bool
	nodesSyncRemoveDisabled bool
	nodesSyncNoUpdates      bool

	nodesAddDescription string
	nodesAddFolder      string
)

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "Manage custom nodes",
	Long: `Manage custom node checkouts under <comfyui>/custom_nodes.

The node catalog (custom_nodes.json) lists every plugin with its git URL and
whether it is enabled. 'sync' clones enabled nodes that are missing, pulls
installed ones, and with --remove-disabled removes disabled ones.`,
}

var nodesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog nodes and their install state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession()
		if err != nil {
			return err
		}
		defer sess.close()
		if err := sess.requireRoot(catalog.KindNode); err != nil {
			return err
		}

		statuses, err := sess.eng.NodeStatus(context.Background())
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(statuses)
		}

		PrintSection("Custom Nodes")
		if len(statuses) == 0 {
			PrintEmptyState("The node catalog is empty.")
			return nil
		}
		rows := make([][]string, 0, len(statuses))
		for _, st := range statuses {
			required := ""
			if st.Item.Required {
				required = "yes"
			}
			rows = append(rows, []string{st.Item.ID, st.Item.Label(), string(st.State), required})
		}
		PrintTable([]string{"ID", "NAME", "STATE", "REQUIRED"}, rows)
		return nil
	},
}

var nodesSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Install, update and remove nodes to match the catalog",
	Long: `Reconcile custom_nodes with the node catalog.

Enabled nodes that are missing are cloned; installed ones are checked for
upstream changes and pulled. Disabled nodes are left alone unless
--remove-disabled is given (or sync.remove_disabled is set), in which case
they are moved to the backup directory or deleted. Required nodes are never
removed. Directories the catalog does not know are reported, not touched.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession()
		if err != nil {
			return err
		}
		defer sess.close()
		if err := sess.requireRoot(catalog.KindNode); err != nil {
			return err
		}

		req := &engine.SyncRequest{DryRun: nodesSyncDryRun}
		if cmd.Flags().Changed("remove-disabled") {
			req.RemoveDisabled = &nodesSyncRemoveDisabled
		}
		if nodesSyncNoUpdates {
			off := false
			req.CheckUpdates = &off
		}

		report, err := sess.eng.SyncNodes(context.Background(), req)
		if err != nil {
			return err
		}
		return finishSync(report)
	},
}

var nodesEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Enable a node in the catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editNode(args[0], "Enabled", func(eng *engine.Engine, id string) (catalog.ManagedItem, error) {
			return eng.EnableNode(context.Background(), id)
		})
	},
}

var nodesDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Disable a node in the catalog",
	Long: `Mark a node disabled. The checkout stays on disk until a sync with
--remove-disabled. Required nodes cannot be disabled.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editNode(args[0], "Disabled", func(eng *engine.Engine, id string) (catalog.ManagedItem, error) {
			return eng.DisableNode(context.Background(), id)
		})
	},
}

var nodesAddCmd = &cobra.Command{
	Use:   "add <name> <git-url>",
	Short: "Add a node to the catalog",
	Long: `Add a node to the catalog. The id is derived from the name and the
checkout directory from the URL, unless --folder is given.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession()
		if err != nil {
			return err
		}
		defer sess.close()

		item, err := sess.eng.AddNode(context.Background(), &engine.AddNodeRequest{
			Name:        args[0],
			URL:         args[1],
			Description: nodesAddDescription,
			Folder:      nodesAddFolder,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(item)
		}
		PrintSuccess(fmt.Sprintf("Added %s (%s)", item.Label(), item.ID))
		PrintInfo("Run 'comfydepot nodes sync' to install it.")
		return nil
	},
}

var nodesRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"remove"},
	Short:   "Remove a node from the catalog",
	Long: `Remove a node from the catalog. Its checkout is left on disk and shows
up as an orphan afterwards. Required nodes cannot be removed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editNode(args[0], "Removed", func(eng *engine.Engine, id string) (catalog.ManagedItem, error) {
			return eng.RemoveNode(context.Background(), id)
		})
	},
}

// editNode runs one catalog edit and prints the result.
func editNode(id, verb string, edit func(*engine.Engine, string) (catalog.ManagedItem, error)) error {
	sess, err := newSession()
	if err != nil {
		return err
	}
	defer sess.close()

	item, err := edit(sess.eng, id)
	if err != nil {
		return err
	}
	if jsonOutput {
		return outputJSON(item)
	}
	PrintSuccess(fmt.Sprintf("%s %s", verb, item.Label()))
	return nil
}

// finishSync prints a report and turns item failures into a non-zero exit.
func finishSync(report *engine.SyncReport) error {
	if jsonOutput {
		if err := outputJSON(report); err != nil {
			return err
		}
	} else {
		printReport(report)
	}
	if !report.Success() {
		return fmt.Errorf("%w: %d of %d", errItemsFailed, report.Errors, len(report.Outcomes))
	}
	return nil
}

func init() {
	nodesSyncCmd.Flags().BoolVar(&nodesSyncDryRun, "dry-run", false, "Show the plan without changing anything")
	nodesSyncCmd.Flags().BoolVar(&nodesSyncRemoveDisabled, "remove-disabled", false, "Remove checkouts of disabled nodes")
	nodesSyncCmd.Flags().BoolVar(&nodesSyncNoUpdates, "no-update-check", false, "Do not fetch installed nodes for updates")

	nodesAddCmd.Flags().StringVar(&nodesAddDescription, "description", "", "Short description")
	nodesAddCmd.Flags().StringVar(&nodesAddFolder, "folder", "", "Checkout directory name (default derived from the URL)")

	nodesCmd.AddCommand(nodesListCmd)
	nodesCmd.AddCommand(nodesSyncCmd)
	nodesCmd.AddCommand(nodesEnableCmd)
	nodesCmd.AddCommand(nodesDisableCmd)
	nodesCmd.AddCommand(nodesAddCmd)
	nodesCmd.AddCommand(nodesRmCmd)
	nodesCmd.AddCommand(newOrphansCmd(catalog.KindNode))
}
