// cmd/tools/registry-updater/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"loyalty-agent/pkg/registry"
)

const defaultPath = "configs/agent-metadata.json"

func main() {
	initCmd := flag.NewFlagSet("init", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	capabilityCmd := flag.NewFlagSet("add-capability", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)

	// Init command flags
	initPath := initCmd.String("path", defaultPath, "Path to metadata file")
	agentID := initCmd.String("id", "loyalty_agent_001", "Agent ID")
	version := initCmd.String("version", "1.0.0", "Agent version")
	apiURL := initCmd.String("url", "http://localhost:8000", "Public URL of the agent API")
	force := initCmd.Bool("force", false, "Overwrite an existing file")

	// Update command flags
	updatePath := updateCmd.String("path", defaultPath, "Path to metadata file")
	field := updateCmd.String("field", "", "Field to update (agent_name, agent_type, version, api_url)")
	value := updateCmd.String("value", "", "New value for the field")

	// Add-capability command flags
	capabilityPath := capabilityCmd.String("path", defaultPath, "Path to metadata file")
	capability := capabilityCmd.String("name", "", "Capability to advertise (e.g., rfm_analysis)")

	// Validate command flags
	validatePath := validateCmd.String("path", defaultPath, "Path to metadata file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		initCmd.Parse(os.Args[2:])
		if _, err := os.Stat(*initPath); err == nil && !*force {
			fmt.Printf("Error: %s already exists (use -force to overwrite)\n", *initPath)
			os.Exit(1)
		}
		m := registry.DefaultMetadata(*agentID, *version, *apiURL)
		if err := registry.SaveMetadata(*initPath, m); err != nil {
			fmt.Printf("Error writing metadata: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote metadata for %s to %s\n", *agentID, *initPath)

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *field == "" || *value == "" {
			fmt.Println("Error: field and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err := updateField(*updatePath, *field, *value); err != nil {
			fmt.Printf("Error updating metadata: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated field %s to %s\n", *field, *value)

	case "add-capability":
		capabilityCmd.Parse(os.Args[2:])
		if *capability == "" {
			fmt.Println("Error: name is required for add-capability.")
			capabilityCmd.Usage()
			os.Exit(1)
		}
		if err := addCapability(*capabilityPath, *capability); err != nil {
			fmt.Printf("Error adding capability: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Added capability: %s\n", *capability)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		if err := validate(*validatePath); err != nil {
			fmt.Printf("Metadata validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Metadata validation passed.")

	case "help":
		fallthrough
	default:
		help()
	}
}

func updateField(path, field, value string) error {
	m, err := registry.LoadMetadata(path)
	if err != nil {
		return fmt.Errorf("failed to load metadata: %w", err)
	}

	switch field {
	case "agent_name":
		m.AgentName = value
	case "agent_type":
		m.AgentType = value
	case "version":
		m.Version = value
	case "api_url":
		m.SetAPIURL(value)
	default:
		return fmt.Errorf("unsupported field: %s", field)
	}

	return registry.SaveMetadata(path, m)
}

func addCapability(path, name string) error {
	m, err := registry.LoadMetadata(path)
	if err != nil {
		return fmt.Errorf("failed to load metadata: %w", err)
	}
	for _, c := range m.Capabilities {
		if c == name {
			return fmt.Errorf("capability %s already advertised", name)
		}
	}
	m.Capabilities = append(m.Capabilities, name)
	return registry.SaveMetadata(path, m)
}

func validate(path string) error {
	m, err := registry.LoadMetadata(path)
	if err != nil {
		return fmt.Errorf("failed to load metadata: %w", err)
	}
	if problems := m.Validate(); len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

func help() {
	fmt.Print(`
Usage: registry-updater <command> [flags]

Commands:
  init            Write default agent metadata
  update          Update a metadata field
  add-capability  Advertise an additional capability
  validate        Validate the metadata file
  help            Show this help message

Examples:
  registry-updater init -id loyalty_agent_001 -url http://loyalty-agent:8000
  registry-updater update -field version -value 1.1.0
  registry-updater add-capability -name reward_optimization
  registry-updater validate -path configs/agent-metadata.json

Use 'registry-updater <command> -h' for more information about a command.
` + "\n")
}
