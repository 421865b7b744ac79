package models

// String methods for the enumerated string types, used by fmt and the
// table renderers.

func (c CallType) String() string { return string(c) }

func (e EvidenceMode) String() string { return string(e) }
