package v1

import metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

// DescriptorName is the file name of the package
// descriptor. It is matched case-insensitively.
const DescriptorName = "meta.json"

type ErrorKind string

const (
	ErrorNone         ErrorKind = ""
	ErrorInvalidInput ErrorKind = "InvalidInput"
	ErrorNotFound     ErrorKind = "NotFound"
	ErrorFormat       ErrorKind = "Format"
	ErrorIO           ErrorKind = "IO"
	ErrorUnknown      ErrorKind = "Unknown"
)

// RemovalResult is the outcome of a single removal
// request against a package.
type RemovalResult struct {
	Success             bool      `json:"success"`
	Kind                ErrorKind `json:"kind,omitempty"`
	ErrorMessage        string    `json:"errorMessage"`
	RemovedCount        int       `json:"removedCount"`
	RemovedDependencies []string  `json:"removedDependencies"`
}

type PackageRemoval struct {
	Path         string   `json:"path"`
	Dependencies []string `json:"dependencies"`
}

type RemovalSpec struct {
	Packages []PackageRemoval `json:"packages,omitempty"`
	// Sniff enables content detection when choosing
	// the compression method of archive entries.
	Sniff bool `json:"sniff,omitempty"`
}

type Removal struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec RemovalSpec `json:"spec"`
}
