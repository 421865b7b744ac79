package models

import "sort"

// EvidenceMode names the source of call-based interface evidence.
type EvidenceMode string

const (
	// EvidenceCallGraph restricts interface matching to call sites whose
	// caller is reachable from the entry point.
	EvidenceCallGraph EvidenceMode = "call_graph"
	// EvidenceSourceScan matches interface patterns against all source text.
	EvidenceSourceScan EvidenceMode = "source_scan"
)

// Diagnostic records a recoverable problem with one file.
type Diagnostic struct {
	Path    string `json:"path"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// FunctionStats counts extracted functions.
type FunctionStats struct {
	Total     int `json:"total_functions"`
	Defined   int `json:"defined_functions"`
	Declared  int `json:"declared_functions"`
	Static    int `json:"static_functions"`
	Inline    int `json:"inline_functions"`
	Reachable int `json:"main_reachable"`
}

// CallStats counts call relations.
type CallStats struct {
	TotalCalls    int `json:"total_calls"`
	UniqueCallers int `json:"unique_callers"`
	UniqueCallees int `json:"unique_callees"`
}

// FileStats counts processed files.
type FileStats struct {
	Total  int `json:"total_files"`
	Parsed int `json:"parsed_files"`
	Failed int `json:"failed_files"`
}

// CallNode is one node of a bounded call tree. The same function may appear
// under several parents.
type CallNode struct {
	Name     string      `json:"name"`
	Depth    int         `json:"depth"`
	Children []*CallNode `json:"children,omitempty"`
}

// CallTree is a depth-limited view of the call graph rooted at the entry point.
type CallTree struct {
	Root     *CallNode `json:"root,omitempty"`
	MaxDepth int       `json:"max_depth"`
}

// Recursion lists recursive functions and mutual-recursion groups.
type Recursion struct {
	SelfRecursive []string   `json:"self_recursive"`
	Cycles        [][]string `json:"cycles"`
}

// AnalysisResult is the aggregate produced by one analysis run.
type AnalysisResult struct {
	EntryPoint string `json:"entry_point"`
	EntryFound bool   `json:"entry_found"`
	Backend    string `json:"backend"`

	Functions     FunctionTable  `json:"functions"`
	CallRelations []CallRelation `json:"call_relations"`
	// Adjacency folds every call relation; CallGraph keeps only reachable callers.
	Adjacency map[string]Set `json:"adjacency"`
	CallGraph map[string]Set `json:"call_graph"`
	Reachable Set            `json:"reachable_functions"`
	CallTree  *CallTree      `json:"call_tree,omitempty"`
	Recursion Recursion      `json:"recursion"`

	Includes          map[string][]string        `json:"includes"`
	Interfaces        map[string]*InterfaceUsage `json:"interface_usage"`
	InterfaceEvidence EvidenceMode               `json:"interface_evidence"`
	Libraries         []LibraryInfo              `json:"libraries"`

	FunctionStats FunctionStats `json:"function_stats"`
	CallStats     CallStats     `json:"call_stats"`
	FileStats     FileStats     `json:"file_stats"`

	Chip        *ChipInfo    `json:"chip,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// NewAnalysisResult returns an empty result with all collections allocated.
func NewAnalysisResult(entry string) *AnalysisResult {
	return &AnalysisResult{
		EntryPoint:    entry,
		Functions:     make(FunctionTable),
		CallRelations: make([]CallRelation, 0),
		Adjacency:     make(map[string]Set),
		CallGraph:     make(map[string]Set),
		Reachable:     make(Set),
		Recursion:     Recursion{SelfRecursive: []string{}, Cycles: [][]string{}},
		Includes:      make(map[string][]string),
		Interfaces:    make(map[string]*InterfaceUsage),
		Libraries:     make([]LibraryInfo, 0),
		Diagnostics:   make([]Diagnostic, 0),
	}
}

// Callers returns the functions that call name, sorted.
func (r *AnalysisResult) Callers(name string) []string {
	if fn, ok := r.Functions[name]; ok {
		return fn.CalledBy.Sorted()
	}
	return nil
}

// Callees returns the functions name calls, sorted.
func (r *AnalysisResult) Callees(name string) []string {
	if fn, ok := r.Functions[name]; ok {
		return fn.Calls.Sorted()
	}
	return nil
}

// IsReachable reports whether name is reachable from the entry point.
func (r *AnalysisResult) IsReachable(name string) bool {
	return r.Reachable.Has(name)
}

// IsInterfaceUsed reports whether the named interface is enabled.
func (r *AnalysisResult) IsInterfaceUsed(name string) bool {
	u, ok := r.Interfaces[name]
	return ok && u.Enabled
}

// EnabledInterfaces returns the names of enabled interfaces, sorted.
func (r *AnalysisResult) EnabledInterfaces() []string {
	var names []string
	for name, u := range r.Interfaces {
		if u.Enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// VendorInterfaces returns the enabled interfaces attributed to vendor.
func (r *AnalysisResult) VendorInterfaces(vendor string) map[string]*InterfaceUsage {
	out := make(map[string]*InterfaceUsage)
	for name, u := range r.Interfaces {
		if u.Enabled && u.Vendor == vendor {
			out[name] = u
		}
	}
	return out
}

// InterfaceDetail summarizes one enabled interface.
type InterfaceDetail struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Vendor        string   `json:"vendor"`
	FunctionCount int      `json:"function_count"`
	FileCount     int      `json:"file_count"`
	CallCount     int      `json:"call_count"`
	Functions     []string `json:"functions"`
}

// InterfaceSummary condenses interface usage for reports and prompts.
type InterfaceSummary struct {
	TotalInterfaces    int               `json:"total_interfaces"`
	EnabledInterfaces  int               `json:"enabled_interfaces"`
	Details            []InterfaceDetail `json:"interface_details"`
	VendorDistribution map[string]int    `json:"vendor_distribution"`
}

// maxSummaryFunctions caps the functions listed per interface in a summary.
const maxSummaryFunctions = 10

// InterfaceSummary builds the summary of enabled interfaces.
func (r *AnalysisResult) InterfaceSummary() InterfaceSummary {
	s := InterfaceSummary{
		TotalInterfaces:    len(r.Interfaces),
		Details:            []InterfaceDetail{},
		VendorDistribution: make(map[string]int),
	}
	for _, name := range r.EnabledInterfaces() {
		u := r.Interfaces[name]
		fns := u.Functions.Sorted()
		if len(fns) > maxSummaryFunctions {
			fns = fns[:maxSummaryFunctions]
		}
		s.Details = append(s.Details, InterfaceDetail{
			Name:          name,
			Description:   u.Description,
			Vendor:        u.Vendor,
			FunctionCount: u.Functions.Len(),
			FileCount:     u.Files.Len(),
			CallCount:     u.CallCount,
			Functions:     fns,
		})
		s.VendorDistribution[u.Vendor]++
	}
	s.EnabledInterfaces = len(s.Details)
	return s
}
