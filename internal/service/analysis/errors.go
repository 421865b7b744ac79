package analysis

// PathError indicates an input path that does not exist or cannot be read.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return "invalid path " + e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// ScanError indicates a failure while listing the files under a root.
type ScanError struct {
	Root string
	Err  error
}

func (e *ScanError) Error() string {
	return "scan " + e.Root + ": " + e.Err.Error()
}

func (e *ScanError) Unwrap() error {
	return e.Err
}
