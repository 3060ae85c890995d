package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/comfydepot/internal/catalog"
	"github.com/danieljhkim/comfydepot/internal/engine"
)

var (
	modelsWorkflow string
	modelsTier     string
	modelsVRAM     int
	modelsDryRun   bool
	modelsForce    bool

	importID          string
	importName        string
	importDescription string
	importCategory    string
	importTiers       []string
	importInstall     bool
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Manage model files",
	Long: `Manage model files under <comfyui>/models.

The model catalog (workflow_models.json) groups models into workflows, each
with model sets for VRAM tiers S (8-12 GB), M (16 GB) and L (24-32 GB).
'sync' downloads the set for one workflow and tier plus every required model.
Files are only ever written into the allowed model folders.`,
}

var modelsWorkflowsCmd = &cobra.Command{
	Use:   "workflows",
	Short: "List workflows and their VRAM tiers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession()
		if err != nil {
			return err
		}
		defer sess.close()

		workflows, err := sess.eng.Workflows(context.Background())
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(workflows)
		}

		PrintSection("Workflows")
		if len(workflows) == 0 {
			PrintEmptyState("The model catalog has no workflows.")
			return nil
		}
		rows := make([][]string, 0, len(workflows))
		for _, wf := range workflows {
			rows = append(rows, []string{wf.ID, wf.Name, wf.Category, strings.Join(wf.Tiers, ",")})
		}
		PrintTable([]string{"ID", "NAME", "CATEGORY", "TIERS"}, rows)
		return nil
	},
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog models and their install state",
	Long: `List the models of a workflow tier (--workflow with --tier or --vram),
or every declared model when no workflow is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession()
		if err != nil {
			return err
		}
		defer sess.close()
		if err := sess.requireRoot(catalog.KindModel); err != nil {
			return err
		}

		tier := ""
		if modelsWorkflow != "" {
			if tier, err = resolveTier(); err != nil {
				return err
			}
		}

		statuses, err := sess.eng.ModelStatus(context.Background(), modelsWorkflow, tier)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(statuses)
		}

		PrintSection("Models")
		if len(statuses) == 0 {
			PrintEmptyState("No models.")
			return nil
		}
		rows := make([][]string, 0, len(statuses))
		for _, st := range statuses {
			size := ""
			if st.Item.SizeMB > 0 {
				size = humanSize(st.Item.SizeMB * 1024 * 1024)
			}
			rows = append(rows, []string{st.Item.ID, catalog.SlotKey(st.Item.RelativePath, st.Item.LocalName), size, string(st.State)})
		}
		PrintTable([]string{"ID", "FILE", "SIZE", "STATE"}, rows)
		return nil
	},
}

var modelsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Download the models of a workflow tier",
	Long: `Install the model set of a workflow for a VRAM tier.

Missing files are restored from the backup directory when a copy is there,
otherwise downloaded; fresh downloads are copied to the backup directory.
Existing files are never overwritten and models of other workflows are
never removed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if modelsWorkflow == "" {
			return fmt.Errorf("--workflow is required")
		}
		tier, err := resolveTier()
		if err != nil {
			return err
		}

		sess, err := newSession()
		if err != nil {
			return err
		}
		defer sess.close()
		if err := sess.requireRoot(catalog.KindModel); err != nil {
			return err
		}

		report, err := sess.eng.SyncModels(context.Background(), &engine.ModelSyncRequest{
			Workflow: modelsWorkflow,
			Tier:     tier,
			DryRun:   modelsDryRun,
		})
		if err != nil {
			return err
		}
		return finishSync(report)
	},
}

var modelsRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Copy a model back from the backup directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession()
		if err != nil {
			return err
		}
		defer sess.close()
		if err := sess.requireRoot(catalog.KindModel); err != nil {
			return err
		}

		dest, err := sess.eng.RestoreModel(context.Background(), &engine.RestoreRequest{ID: args[0], Force: modelsForce})
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(map[string]string{"id": args[0], "path": dest})
		}
		PrintSuccess(fmt.Sprintf("Restored %s to %s", args[0], dest))
		return nil
	},
}

var modelsAddWorkflowCmd = &cobra.Command{
	Use:   "add-workflow <file>",
	Short: "Add the models a workflow file loads to the catalog",
	Long: `Read a ComfyUI workflow (editor or API format), find the model files its
loader nodes reference and write them into the catalog as a workflow.

Every tier gets every model unless --tiers narrows the list. Download URLs
are filled in for well-known files; the rest must be added by hand before
'models sync' can fetch them. --install also copies the workflow file into
ComfyUI's workflows directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession()
		if err != nil {
			return err
		}
		defer sess.close()

		res, err := sess.eng.ImportWorkflow(context.Background(), &engine.ImportWorkflowRequest{
			Path:        args[0],
			ID:          importID,
			Name:        importName,
			Description: importDescription,
			Category:    importCategory,
			Tiers:       importTiers,
			Install:     importInstall,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(res)
		}

		PrintSuccess(fmt.Sprintf("Workflow %s: %s", res.ID, PrintCount(len(res.Models), "model", "models")))
		rows := make([][]string, 0, len(res.Models))
		for _, m := range res.Models {
			url := m.URL
			if url == "" {
				url = "(none)"
			}
			rows = append(rows, []string{m.ID, catalog.SlotKey(m.TargetPath, m.Filename), url})
		}
		PrintTable([]string{"ID", "FILE", "URL"}, rows)
		if missing := res.MissingURLs(); len(missing) > 0 {
			PrintWarning(fmt.Sprintf("No download URL for %s; edit the catalog before syncing", strings.Join(missing, ", ")))
		}
		if res.Installed != "" {
			PrintInfo("Installed workflow to " + res.Installed)
		}
		return nil
	},
}

var modelsFoldersCmd = &cobra.Command{
	Use:   "folders",
	Short: "List the folders orphan scans cover",
	Long: `List the catalog's target folders. Orphan scans only look inside these.
When none are set, the folders the catalog's models are declared in are used.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFolders(func(eng *engine.Engine) ([]string, error) {
			return eng.TargetFolders(context.Background())
		})
	},
}

var modelsFoldersAddCmd = &cobra.Command{
	Use:   "add <folder>",
	Short: "Add a target folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFolders(func(eng *engine.Engine) ([]string, error) {
			return eng.AddTargetFolder(context.Background(), args[0])
		})
	},
}

var modelsFoldersRemoveCmd = &cobra.Command{
	Use:     "rm <folder>",
	Aliases: []string{"remove"},
	Short:   "Remove a target folder",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFolders(func(eng *engine.Engine) ([]string, error) {
			return eng.RemoveTargetFolder(context.Background(), args[0])
		})
	},
}

func runFolders(op func(*engine.Engine) ([]string, error)) error {
	sess, err := newSession()
	if err != nil {
		return err
	}
	defer sess.close()

	folders, err := op(sess.eng)
	if err != nil {
		return err
	}
	if jsonOutput {
		return outputJSON(map[string][]string{"folders": folders})
	}
	PrintSection("Target folders")
	if len(folders) == 0 {
		PrintEmptyState("No target folders.")
		return nil
	}
	PrintList(folders, 1)
	return nil
}

// resolveTier returns the tier from --tier, or derived from --vram.
func resolveTier() (string, error) {
	if modelsTier != "" {
		return strings.ToUpper(modelsTier), nil
	}
	if modelsVRAM > 0 {
		if tier := catalog.TierFor(modelsVRAM); tier != "" {
			return tier, nil
		}
		return "", fmt.Errorf("%w: no tier for %d GB", catalog.ErrUnknownTier, modelsVRAM)
	}
	return "", fmt.Errorf("--tier or --vram is required (tiers: %s)", strings.Join(catalog.TierNames(), ", "))
}

func init() {
	for _, c := range []*cobra.Command{modelsListCmd, modelsSyncCmd} {
		c.Flags().StringVarP(&modelsWorkflow, "workflow", "w", "", "Workflow id (see 'models workflows')")
		c.Flags().StringVarP(&modelsTier, "tier", "t", "", "VRAM tier: S, M or L")
		c.Flags().IntVar(&modelsVRAM, "vram", 0, "GPU memory in GB, used to pick the tier")
	}
	modelsSyncCmd.Flags().BoolVar(&modelsDryRun, "dry-run", false, "Show the plan without downloading")
	modelsRestoreCmd.Flags().BoolVar(&modelsForce, "force", false, "Overwrite an installed copy")

	f := modelsAddWorkflowCmd.Flags()
	f.StringVar(&importID, "id", "", "Workflow id (default: file name without extension)")
	f.StringVar(&importName, "name", "", "Display name")
	f.StringVar(&importDescription, "description", "", "Description")
	f.StringVar(&importCategory, "category", "", "Category, e.g. video or image")
	f.StringSliceVar(&importTiers, "tiers", nil, "Tiers the models belong to (default: all)")
	f.BoolVar(&importInstall, "install", false, "Copy the workflow file into ComfyUI's workflows directory")

	modelsFoldersCmd.AddCommand(modelsFoldersAddCmd)
	modelsFoldersCmd.AddCommand(modelsFoldersRemoveCmd)

	modelsCmd.AddCommand(modelsWorkflowsCmd)
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsSyncCmd)
	modelsCmd.AddCommand(newOrphansCmd(catalog.KindModel))
	modelsCmd.AddCommand(modelsRestoreCmd)
	modelsCmd.AddCommand(modelsAddWorkflowCmd)
	modelsCmd.AddCommand(modelsFoldersCmd)
}
