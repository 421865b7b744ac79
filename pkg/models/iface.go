package models

// Vendor names used for interface attribution.
const (
	VendorSTM32    = "STM32"
	VendorNXP      = "NXP"
	VendorNXPLPC   = "NXP LPC"
	VendorARMCMSIS = "ARM CMSIS"
	VendorGeneric  = "Generic"
)

// InterfaceUsage records the evidence collected for one hardware interface
// category such as GPIO or UART.
type InterfaceUsage struct {
	Name        string `json:"interface_name"`
	Description string `json:"description"`
	Vendor      string `json:"vendor"`
	Functions   Set    `json:"functions"`
	Files       Set    `json:"files"`
	CallCount   int    `json:"call_count"`
	Enabled     bool   `json:"enabled"`
}

// NewInterfaceUsage returns a disabled usage record with empty sets.
func NewInterfaceUsage(name, description, vendor string) *InterfaceUsage {
	return &InterfaceUsage{
		Name:        name,
		Description: description,
		Vendor:      vendor,
		Functions:   make(Set),
		Files:       make(Set),
	}
}

// LibraryInfo is a vendor library recognized from header names.
type LibraryInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Vendor      string `json:"vendor"`
	HeaderFiles Set    `json:"header_files"`
	Interfaces  Set    `json:"interfaces"`
	Score       int    `json:"score"`
}

// ChipInfo is supplied by the caller and attached to results unchanged.
type ChipInfo struct {
	Device    string `json:"device,omitempty"`
	Vendor    string `json:"vendor,omitempty"`
	Series    string `json:"series,omitempty"`
	Core      string `json:"core,omitempty"`
	FlashSize string `json:"flash_size,omitempty"`
	RAMSize   string `json:"ram_size,omitempty"`
}

// IsZero reports whether no chip field is set.
func (c *ChipInfo) IsZero() bool {
	return c == nil || *c == ChipInfo{}
}
