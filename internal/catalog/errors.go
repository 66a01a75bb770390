package catalog

import "fmt"

// Kind classifies catalog load failures.
type Kind string

const (
	KindTransport Kind = "transport"
	KindStatus    Kind = "status"
	KindDecode    Kind = "decode"
)

// LoadError reports why the catalog could not be loaded.
type LoadError struct {
	Kind   Kind
	Source string
	// Status is the HTTP status for KindStatus failures of HTTP sources.
	Status int
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("catalog: %s failure loading %s: %v", e.Kind, e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
