package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/danieljhkim/comfydepot/internal/config"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and initialize the configuration",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config, catalog and state locations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, paths, err := loadConfig()
		if err != nil {
			return err
		}
		out := map[string]string{
			"config":        paths.Config,
			"nodesCatalog":  paths.NodesCatalog(cfg),
			"modelsCatalog": paths.ModelsCatalog(cfg),
			"stateDir":      paths.StateDir,
			"lockDir":       paths.LockDir,
		}
		if jsonOutput {
			return outputJSON(out)
		}
		PrintSection("Paths")
		PrintLabelValue("Config", out["config"])
		PrintLabelValue("Nodes catalog", out["nodesCatalog"])
		PrintLabelValue("Models catalog", out["modelsCatalog"])
		PrintLabelValue("State", out["stateDir"])
		PrintLabelValue("Locks", out["lockDir"])
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.ResolveRoots(config.Candidates()); err != nil && !jsonOutput {
			PrintWarning(err.Error())
		}
		if jsonOutput {
			return outputJSON(cfg)
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		_, _ = fmt.Fprint(stdout, string(data))
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration for problems",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, paths, err := loadConfig()
		if err != nil {
			return err
		}
		findings := cfg.Validate()
		if jsonOutput {
			if err := outputJSON(findings); err != nil {
				return err
			}
			return cfg.Err()
		}

		PrintSection("Validate " + paths.Config)
		if len(findings) == 0 {
			PrintSuccess("No problems found")
			return nil
		}
		for _, f := range findings {
			if f.Level == "error" {
				PrintError(f.Message)
			} else {
				PrintWarning(f.Message)
			}
		}
		return cfg.Err()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Long: `Write a config file with the default settings. The ComfyUI location is
filled in when it can be detected.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, paths, err := loadConfig()
		if err != nil {
			return err
		}
		if _, err := os.Stat(paths.Config); err == nil && !configInitForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", paths.Config)
		}

		cfg := config.Default()
		if dir, err := config.DetectComfyUI(config.Candidates()); err == nil {
			cfg.ComfyUIPath = dir
		}
		if err := config.Save(paths.Config, cfg); err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(map[string]string{"config": paths.Config})
		}
		PrintSuccess(fmt.Sprintf("Wrote %s", paths.Config))
		if cfg.ComfyUIPath == "" {
			PrintWarning("ComfyUI was not detected; set comfyui_path before syncing.")
		}
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config file")

	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configInitCmd)
}
