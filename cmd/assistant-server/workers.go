package main

import (
	"fmt"
	"strings"

	crmcreate "fleet-assistant/internal/workers/leads/crm-create"
	indextranscript "fleet-assistant/internal/workers/leads/index-transcript"
	notifysales "fleet-assistant/internal/workers/leads/notify-sales"
	"fleet-assistant/pkg/registry"

	"github.com/spf13/cobra"
)

const registryVersion = "1.0.0"

var workersCmd = &cobra.Command{
	Use:   "workers",
	Short: "Print the lead-qualification activity registry",
	Long: "Prints the service tasks this build executes as an activity registry. " +
		"With --check, compares them against a registry file and fails on drift.",
	RunE: runWorkers,
}

var checkRegistryPath string

func init() {
	workersCmd.Flags().StringVar(&checkRegistryPath, "check", "", "registry file to compare against")
	rootCmd.AddCommand(workersCmd)
}

func leadActivities() *registry.ActivityRegistry {
	return registry.New(registryVersion,
		notifysales.Activity(),
		crmcreate.Activity(),
		indextranscript.Activity(),
	)
}

func runWorkers(cmd *cobra.Command, args []string) error {
	built := leadActivities()
	if err := built.Validate(); err != nil {
		return err
	}
	if checkRegistryPath == "" {
		return built.WriteJSON(cmd.OutOrStdout())
	}

	file, err := registry.LoadRegistry(checkRegistryPath)
	if err != nil {
		return err
	}
	missing, extra := built.Diff(file)
	if len(missing) == 0 && len(extra) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is up to date (%d activities)\n", checkRegistryPath, len(built.Activities))
		return nil
	}

	var problems []string
	if len(missing) > 0 {
		problems = append(problems, "missing from file: "+strings.Join(missing, ", "))
	}
	if len(extra) > 0 {
		problems = append(problems, "not implemented: "+strings.Join(extra, ", "))
	}
	return fmt.Errorf("registry drift in %s: %s", checkRegistryPath, strings.Join(problems, "; "))
}
