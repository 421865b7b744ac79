package report

import (
	"time"

	"github.com/panbanda/mcuscope/pkg/models"
)

// Metadata describes where and when a report was produced.
type Metadata struct {
	Project     string    `json:"project"`
	GeneratedAt time.Time `json:"generated_at"`
	Version     string    `json:"version"`
	Revision    string    `json:"revision,omitempty"`
	Paths       []string  `json:"paths"`
}

// FunctionRow is one row of the function listing.
type FunctionRow struct {
	Name      string `json:"name"`
	File      string `json:"file_path"`
	Line      int    `json:"line_number"`
	Kind      string `json:"kind"`
	Static    bool   `json:"is_static"`
	Inline    bool   `json:"is_inline"`
	Reachable bool   `json:"reachable"`
	Calls     int    `json:"calls"`
	CalledBy  int    `json:"called_by"`
}

// InterfaceView bundles interface usage with the libraries that explain it.
type InterfaceView struct {
	Evidence   models.EvidenceMode               `json:"interface_evidence"`
	Interfaces map[string]*models.InterfaceUsage `json:"interface_usage"`
	Libraries  []models.LibraryInfo              `json:"libraries"`
	Summary    models.InterfaceSummary           `json:"summary"`
}

// StatsView groups the three statistics blocks of a result.
type StatsView struct {
	Functions models.FunctionStats `json:"function_stats"`
	Calls     models.CallStats     `json:"call_stats"`
	Files     models.FileStats     `json:"file_stats"`
}

// Document is everything the HTML template needs.
type Document struct {
	Metadata  Metadata
	Result    *models.AnalysisResult
	Functions []FunctionRow
	Summary   models.InterfaceSummary
	CallTree  string
}
