package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/comfydepot/internal/catalog"
	"github.com/danieljhkim/comfydepot/internal/engine"
)

// newOrphansCmd builds the orphans subcommand for one managed root.
func newOrphansCmd(kind catalog.Kind) *cobra.Command {
	var (
		del bool
		yes bool
	)

	cmd := &cobra.Command{
		Use:   "orphans [name...]",
		Short: "List or delete entries the catalog does not know",
		Long: fmt.Sprintf(`List entries under the %s root that no catalog item accounts for.

With --delete they are removed. When a backup directory is configured each
orphan is moved there instead; if the backup already holds an identical copy
the orphan is simply deleted. Names (as printed by the listing) limit the
deletion to those entries.

By default, you will be prompted to confirm before deletion.
Use --yes to skip the confirmation prompt.`, kind),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession()
			if err != nil {
				return err
			}
			defer sess.close()
			if err := sess.requireRoot(kind); err != nil {
				return err
			}
			ctx := context.Background()

			if !del {
				orphans, err := sess.eng.Orphans(ctx, kind)
				if err != nil {
					return err
				}
				if jsonOutput {
					return outputJSON(orphans)
				}
				PrintSection(fmt.Sprintf("Orphaned %s", kindTitle(kind)))
				if len(orphans) == 0 {
					PrintEmptyState("Nothing outside the catalog.")
					return nil
				}
				PrintList(orphanNames(orphans), 1)
				_, _ = fmt.Fprintln(stdout)
				PrintInfo(fmt.Sprintf("Run '%s orphans --delete' to remove them.", kindCommand(kind)))
				return nil
			}

			req := &engine.DeleteOrphansRequest{Kind: kind, Names: args, Confirm: yes}
			report, err := sess.eng.DeleteOrphans(ctx, req)
			if errors.Is(err, engine.ErrConfirmationRequired) {
				if jsonOutput {
					return fmt.Errorf("%w: pass --yes with --json", err)
				}
				PrintWarning(fmt.Sprintf("About to delete %s:", PrintCount(len(report.Orphans), "entry", "entries")))
				PrintList(orphanNames(report.Orphans), 1)
				if !promptConfirm("Proceed?") {
					return fmt.Errorf("deletion cancelled by user")
				}

				// only what was shown; anything that appeared since stays
				req.Names = orphanKeys(report.Orphans)
				req.Confirm = true
				report, err = sess.eng.DeleteOrphans(ctx, req)
			}
			if err != nil {
				return err
			}

			if jsonOutput {
				if err := outputJSON(report); err != nil {
					return err
				}
			} else if len(report.Outcomes) == 0 {
				PrintEmptyState("Nothing outside the catalog.")
			} else {
				printOrphanReport(report)
			}
			if report.Errors > 0 {
				return fmt.Errorf("%w: %d orphan(s)", errItemsFailed, report.Errors)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&del, "delete", false, "Delete the orphans (moving them to backup when configured)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompt")
	return cmd
}
