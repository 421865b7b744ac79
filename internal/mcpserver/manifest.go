package mcpserver

import (
	"encoding/json"
)

const (
	manifestSchema = "https://static.modelcontextprotocol.io/schemas/2025-10-17/server.schema.json"
	registryName   = "io.github.panbanda/mcuscope"
	repoURL        = "https://github.com/panbanda/mcuscope"
	imageRepo      = "ghcr.io/panbanda/mcuscope"
)

// Manifest is the registry server.json document.
type Manifest struct {
	Schema      string     `json:"$schema"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Version     string     `json:"version"`
	Repository  Repository `json:"repository"`
	Packages    []Package  `json:"packages"`
}

type Repository struct {
	URL    string `json:"url"`
	Source string `json:"source"`
}

// Package is one installable distribution of the server.
type Package struct {
	RegistryType     string     `json:"registryType"`
	Identifier       string     `json:"identifier"`
	Version          string     `json:"version,omitempty"`
	RuntimeHint      string     `json:"runtimeHint,omitempty"`
	RuntimeArguments []Argument `json:"runtimeArguments,omitempty"`
	PackageArguments []Argument `json:"packageArguments,omitempty"`
	Transport        Transport  `json:"transport"`
}

// Argument is a positional or named command-line argument.
type Argument struct {
	Type        string `json:"type"`
	Name        string `json:"name,omitempty"`
	Value       string `json:"value,omitempty"`
	Description string `json:"description,omitempty"`
	IsRequired  bool   `json:"isRequired,omitempty"`
}

type Transport struct {
	Type string `json:"type"`
}

// GenerateManifest renders server.json for a release. The container image
// needs the firmware tree mounted, so it declares a volume argument.
func GenerateManifest(version string) ([]byte, error) {
	if version == "" || version == "dev" {
		version = "0.0.0"
	}
	stdio := Transport{Type: "stdio"}
	serve := Argument{Type: "positional", Value: "mcp"}

	m := Manifest{
		Schema:      manifestSchema,
		Name:        registryName,
		Description: "Static analysis of MCU firmware: call graphs, peripheral usage and vendor SDK detection for C/C++",
		Version:     version,
		Repository:  Repository{URL: repoURL, Source: "github"},
		Packages: []Package{
			{
				RegistryType: "oci",
				Identifier:   imageRepo + ":" + version,
				RuntimeHint:  "docker",
				RuntimeArguments: []Argument{{
					Type:        "named",
					Name:        "-v",
					Value:       "{project_dir}:/src:ro",
					Description: "Firmware source tree to analyze",
					IsRequired:  true,
				}},
				PackageArguments: []Argument{serve},
				Transport:        stdio,
			},
		},
	}
	return json.MarshalIndent(m, "", "  ")
}
