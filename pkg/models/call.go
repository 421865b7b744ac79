package models

// CallType classifies a call edge.
type CallType string

const (
	CallDirect      CallType = "direct"
	CallIndirect    CallType = "indirect"
	CallConditional CallType = "conditional"
)

// CallSite is a call candidate found inside a function body. The callee may
// be external to the analyzed tree (for example a vendor HAL routine).
type CallSite struct {
	Caller string `json:"caller"`
	Callee string `json:"callee"`
	File   string `json:"file_path"`
	Line   int    `json:"line_number"`
}

// CallRelation is a call site whose caller and callee are both in the
// function table. Repeated calls in one function yield repeated relations.
type CallRelation struct {
	Caller string   `json:"caller"`
	Callee string   `json:"callee"`
	File   string   `json:"file_path"`
	Line   int      `json:"line_number"`
	Type   CallType `json:"call_type"`
}
