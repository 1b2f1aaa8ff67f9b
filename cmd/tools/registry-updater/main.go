// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"scheme-matcher/internal/matching/rules"
	"scheme-matcher/pkg/registry"
)

const defaultRegistry = "internal/matching/rules/default_rules.yaml"

func main() {
	showCmd := flag.NewFlagSet("show", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	addCmd := flag.NewFlagSet("add-keyword", flag.ExitOnError)
	bumpCmd := flag.NewFlagSet("bump", flag.ExitOnError)

	showPath := showCmd.String("path", defaultRegistry, "Path to rule registry")
	showTable := showCmd.String("table", "", "Table to print (intents, registrations, states, ...); empty prints a summary")

	validatePath := validateCmd.String("path", defaultRegistry, "Path to rule registry")

	addPath := addCmd.String("path", defaultRegistry, "Path to rule registry")
	table := addCmd.String("table", "", "Table (intent-query, intent-scheme, support, activity, state, exclusion, persona-farmer, persona-msme)")
	group := addCmd.String("group", "", "Group name inside the table, e.g. loan or Maharashtra")
	keyword := addCmd.String("keyword", "", "Keyword to add")

	bumpPath := bumpCmd.String("path", defaultRegistry, "Path to rule registry")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "show":
		showCmd.Parse(os.Args[2:])
		err = show(*showPath, *showTable)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		err = validate(*validatePath)
		if err == nil {
			fmt.Println("Registry validation passed.")
		}

	case "add-keyword":
		addCmd.Parse(os.Args[2:])
		if *table == "" || *keyword == "" {
			fmt.Println("Error: table and keyword are required for add-keyword.")
			addCmd.Usage()
			os.Exit(1)
		}
		err = addKeyword(*addPath, *table, *group, *keyword)

	case "bump":
		bumpCmd.Parse(os.Args[2:])
		err = bump(*bumpPath)

	case "help":
		fallthrough
	default:
		help()
		return
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func show(path, table string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	var v interface{}
	switch table {
	case "":
		v = map[string]interface{}{
			"version":       reg.Version,
			"lastUpdated":   reg.LastUpdated,
			"registrations": len(reg.Registrations),
			"intents":       len(reg.Intents),
			"supportTypes":  len(reg.SupportTypes),
			"activities":    len(reg.Activities),
			"states":        len(reg.States),
			"amountUnits":   len(reg.Amount.Units),
		}
	case "amount":
		v = reg.Amount
	case "registrations":
		v = reg.Registrations
	case "intents":
		v = reg.Intents
	case "supportTypes":
		v = reg.SupportTypes
	case "activities":
		v = reg.Activities
	case "states":
		v = reg.States
	case "schemeTypeFilters":
		v = reg.SchemeTypeFilters
	case "persona":
		v = reg.Persona
	default:
		return fmt.Errorf("unknown table %q", table)
	}

	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// validate checks the document shape, duplicate group names and that every
// pattern compiles.
func validate(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read registry: %w", err)
	}

	problems, err := registry.ValidateDocument(data)
	if err != nil {
		return err
	}
	for _, p := range problems {
		fmt.Println("  -", p)
	}
	if len(problems) > 0 {
		return fmt.Errorf("%d schema violations", len(problems))
	}

	reg, err := registry.Parse(data)
	if err != nil {
		return err
	}
	if dups := reg.Duplicates(); len(dups) > 0 {
		for _, d := range dups {
			fmt.Println("  -", d)
		}
		return fmt.Errorf("%d duplicate groups", len(dups))
	}

	tables, err := rules.Compile(reg)
	if err != nil {
		return fmt.Errorf("rule tables do not compile: %w", err)
	}
	fmt.Printf("Registry %s: %d registrations, %d intents, %d states.\n",
		tables.Version, len(reg.Registrations), len(reg.Intents), len(reg.States))
	return nil
}

func addKeyword(path, table, group, keyword string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	added, err := reg.AddKeyword(table, group, keyword)
	if err != nil {
		return err
	}
	if !added {
		fmt.Printf("Keyword %q already present in %s/%s.\n", keyword, table, group)
		return nil
	}

	// Refuse to write a registry that would no longer load.
	if _, err := rules.Compile(reg); err != nil {
		return fmt.Errorf("registry would not compile: %w", err)
	}

	version := reg.BumpVersion()
	if err := registry.Save(path, reg); err != nil {
		return fmt.Errorf("failed to save registry: %w", err)
	}
	fmt.Printf("Added %q to %s/%s, registry now at %s.\n", keyword, table, group, version)
	return nil
}

func bump(path string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	version := reg.BumpVersion()
	if err := registry.Save(path, reg); err != nil {
		return fmt.Errorf("failed to save registry: %w", err)
	}
	fmt.Printf("Registry version bumped to %s.\n", version)
	return nil
}

func help() {
	fmt.Print(`
Usage: registry-updater <command> [flags]

Commands:
  show         Print a summary or one table of the rule registry
  validate     Check shape, duplicates and that every pattern compiles
  add-keyword  Add a keyword to a table and bump the version
  bump         Bump the registry version
  help         Show this help message

Examples:
  registry-updater show -table intents
  registry-updater add-keyword -table intent-query -group loan -keyword "cash credit"
  registry-updater add-keyword -table state -group Maharashtra -keyword "mumbai"
  registry-updater validate -path internal/matching/rules/default_rules.yaml

Use 'registry-updater <command> -h' for more information about a command.
` + "\n")
}
