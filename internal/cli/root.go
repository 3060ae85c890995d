package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	jsonOutput      bool
	configPath      string
	logLevel        string
	metricsTextfile string

	// Colors for help output sections
	groupTitleColor   = color.New(color.FgCyan, color.Bold)
	sectionTitleColor = color.New(color.FgBlue, color.Bold)
)

// rootCmd is the root command for comfydepot.
var rootCmd = &cobra.Command{
	Use:     "comfydepot",
	Version: "dev",
	Short:   "Keep ComfyUI custom nodes and models in line with their catalogs",
	Long: `comfydepot keeps a ComfyUI installation in line with two JSON catalogs.

It installs, updates and removes custom node checkouts, downloads the model
set of a workflow for your VRAM tier, and reports files the catalogs do not
know about. Every path is checked against the managed roots before it is touched.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func SetVersion(v string) {
	if v == "" {
		return
	}
	rootCmd.Version = v
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

// customHelpFunc prints help with colored group titles. Subcommands without
// a group are listed under "Additional Commands".
func customHelpFunc(cmd *cobra.Command, args []string) {
	var help strings.Builder

	if cmd.Long != "" {
		help.WriteString(cmd.Long)
		help.WriteString("\n\n")
	}

	writeSection(&help, sectionTitleColor, "Usage:")
	fmt.Fprintf(&help, "  %s\n\n", cmd.UseLine())
	if len(cmd.Aliases) > 0 {
		writeSection(&help, sectionTitleColor, "Aliases:")
		fmt.Fprintf(&help, "  %s\n\n", strings.Join(append([]string{cmd.Name()}, cmd.Aliases...), ", "))
	}

	width := 11
	for _, c := range cmd.Commands() {
		if n := len(c.Name()); n > width {
			width = n
		}
	}
	for _, group := range cmd.Groups() {
		writeCommands(&help, groupTitleColor, group.Title, cmd.Commands(), group.ID, width)
	}
	writeCommands(&help, sectionTitleColor, "Additional Commands:", cmd.Commands(), "", width)

	if cmd.HasAvailableLocalFlags() || cmd.HasAvailablePersistentFlags() {
		writeSection(&help, sectionTitleColor, "Flags:")
		help.WriteString(cmd.LocalFlags().FlagUsages())
		help.WriteString(cmd.InheritedFlags().FlagUsages())
		help.WriteString("\n")
	}

	if cmd.HasAvailableSubCommands() {
		fmt.Fprintf(&help, "Use \"%s [command] --help\" for more information about a command.\n", cmd.CommandPath())
	}
	fmt.Fprint(cmd.OutOrStdout(), help.String())
}

func writeSection(b *strings.Builder, c *color.Color, title string) {
	b.WriteString(c.Sprint(title))
	b.WriteString("\n")
}

// writeCommands lists the visible commands of one group; nothing is written
// when the group is empty.
func writeCommands(b *strings.Builder, c *color.Color, title string, cmds []*cobra.Command, groupID string, width int) {
	wrote := false
	for _, sub := range cmds {
		if sub.GroupID != groupID || sub.Hidden || sub.Deprecated != "" {
			continue
		}
		if !wrote {
			writeSection(b, c, title)
			wrote = true
		}
		fmt.Fprintf(b, "  %-*s %s\n", width, sub.Name(), sub.Short)
	}
	if wrote {
		b.WriteString("\n")
	}
}

func init() {
	rootCmd.SetHelpFunc(customHelpFunc)

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $COMFYDEPOT_CONFIG or XDG config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&metricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this file after the run")

	rootCmd.AddGroup(&cobra.Group{
		ID:    "custom-nodes",
		Title: "Custom Nodes:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "models",
		Title: "Models:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "configuration",
		Title: "Configuration:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "cli-tooling",
		Title: "CLI & Tooling:",
	})

	// CLI & Tooling commands
	versionCmd := &cobra.Command{
		Use:     "version",
		Short:   "Print the comfydepot CLI version",
		Args:    cobra.NoArgs,
		GroupID: "cli-tooling",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintln(stdout, rootCmd.Version)
		},
	}
	rootCmd.AddCommand(versionCmd)

	rootCmd.SetHelpCommandGroupID("cli-tooling")
	rootCmd.SetCompletionCommandGroupID("cli-tooling")

	nodesCmd.GroupID = "custom-nodes"
	rootCmd.AddCommand(nodesCmd)

	modelsCmd.GroupID = "models"
	rootCmd.AddCommand(modelsCmd)

	configCmd.GroupID = "configuration"
	rootCmd.AddCommand(configCmd)
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}
