package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect and validate the rule/audit registry",
}

var registryShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List every rule and audit with its gate defaults",
	RunE:  runRegistryShow,
}

var registryValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the registry document for internal consistency",
	Long: `Validate parses the registry (--registry, or the embedded default) and
checks that every profile override references a known id with a known level.`,
	RunE: runRegistryValidate,
}

var registryProfilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the gate profiles and their overrides",
	RunE:  runRegistryProfiles,
}

func init() {
	registryCmd.AddCommand(registryShowCmd)
	registryCmd.AddCommand(registryValidateCmd)
	registryCmd.AddCommand(registryProfilesCmd)
}

func runRegistryShow(_ *cobra.Command, _ []string) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}

	w := table.NewWriter()
	w.SetStyle(table.StyleLight)
	w.AppendHeader(table.Row{"ID", "Kind", "Category", "Severity", "Stage", "Gate", "Namespaces"})
	for _, e := range reg.Rules {
		w.AppendRow(table.Row{e.ID, "rule", e.Category, e.Severity, e.Stage, e.DefaultGateLevel, joinNS(e.Namespaces)})
	}
	for _, e := range reg.Audits {
		w.AppendRow(table.Row{e.ID, "audit", e.Category, e.Severity, e.Stage, e.DefaultGateLevel, ""})
	}
	w.AppendFooter(table.Row{fmt.Sprintf("%d rules, %d audits", len(reg.Rules), len(reg.Audits))})
	fmt.Println(w.Render())
	return nil
}

func joinNS(ns []string) string {
	out := ""
	for i, n := range ns {
		if i > 0 {
			out += ","
		}
		out += n
	}
	return out
}

func runRegistryValidate(_ *cobra.Command, _ []string) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	fmt.Printf("registry ok: %d rules, %d audits, %d categories, %d profiles\n",
		len(reg.Rules), len(reg.Audits), len(reg.Categories), len(reg.Profiles))
	return nil
}

func runRegistryProfiles(_ *cobra.Command, _ []string) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	for _, name := range reg.ProfileNames() {
		fmt.Printf("%s:\n", name)
		p := reg.Profile(name)
		for _, ov := range p.Overrides {
			fmt.Printf("  %-28s %s\n", ov.ID, ov.Level)
		}
	}
	return nil
}
