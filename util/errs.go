// Copyright 2017 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package util implements utility functions shared across the confmodel
// packages: error accumulation, the error taxonomy, debug trace helpers and
// gNMI path manipulation.
package util

import "fmt"

// Errors is a slice of error.
type Errors []error

// Error implements the error#Error method.
func (e Errors) Error() string {
	return ToString([]error(e))
}

// String implements the stringer#String method.
func (e Errors) String() string {
	return e.Error()
}

// NewErrs returns a slice of error with a single element err.
// If err is nil, returns nil.
func NewErrs(err error) Errors {
	if err == nil {
		return nil
	}
	return []error{err}
}

// AppendErr appends err to errors if it is not nil and returns the result.
// If err is nil, it is not appended.
func AppendErr(errors []error, err error) Errors {
	if err == nil {
		return errors
	}
	return append(errors, err)
}

// AppendErrs appends newErrs to errors and returns the result.
// If newErrs is empty, nothing is appended.
func AppendErrs(errors []error, newErrs []error) Errors {
	if len(newErrs) == 0 {
		return errors
	}
	for _, e := range newErrs {
		errors = AppendErr(errors, e)
	}
	return errors
}

// ToString returns a string representation of errors. Any nil errors in the
// slice are skipped.
func ToString(errors []error) string {
	var out string
	for i, e := range errors {
		if e == nil {
			continue
		}
		if i != 0 {
			out += ", "
		}
		out += e.Error()
	}
	return out
}

// Kind identifies which member of the error taxonomy an error belongs to.
// Callers that only care about the category can switch on Kind() rather
// than the concrete type, while the concrete TreeError still carries
// whatever extra context (path, fragment) is useful for a human reading it.
type Kind int

const (
	// KindModelError denotes an inconsistency in the schema itself, or an
	// unrecoverable invariant violation (fix-loop limit, cyclic warp). It
	// is always fatal.
	KindModelError Kind = iota
	// KindUserError denotes reading a mandatory-empty value, using a
	// hidden element, or accessing an obsolete element.
	KindUserError
	// KindWrongValue denotes a validation failure on store or fetch.
	KindWrongValue
	// KindWrongType denotes an operation performed on an element of the
	// wrong kind, e.g. ":id" on a leaf.
	KindWrongType
	// KindUnknownElement denotes a name not present in the model and not
	// accepted by an Accept rule.
	KindUnknownElement
	// KindUnknownID denotes a collection index not present and not
	// creatable.
	KindUnknownID
	// KindLoadError denotes a parse or execution failure in the loader
	// DSL; it carries the offending command fragment.
	KindLoadError
	// KindLoadDataError denotes a structured-data load (=.json, =.yaml)
	// whose shape didn't match the requested path.
	KindLoadDataError
	// KindSyntaxError denotes a report-back from a backend with a
	// file+line location.
	KindSyntaxError
	// KindInternal denotes a bug in the engine (an assertion failure).
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindModelError:
		return "ModelError"
	case KindUserError:
		return "UserError"
	case KindWrongValue:
		return "WrongValue"
	case KindWrongType:
		return "WrongType"
	case KindUnknownElement:
		return "UnknownElement"
	case KindUnknownID:
		return "UnknownId"
	case KindLoadError:
		return "LoadError"
	case KindLoadDataError:
		return "LoadDataError"
	case KindSyntaxError:
		return "SyntaxError"
	case KindInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// TreeError is the common error type raised by the schema, model, instance
// and loader packages. Path is the dotted/bracketed location the error
// occurred at, if known; it is empty for schema-global errors.
type TreeError struct {
	Kind    Kind
	Path    string
	Message string
	// Fragment carries the offending command text for KindLoadError, or
	// the offending sub-tree description for KindLoadDataError.
	Fragment string
}

func (e *TreeError) Error() string {
	switch {
	case e.Fragment != "" && e.Path != "":
		return fmt.Sprintf("%s: %s (at %s, near %q)", e.Kind, e.Message, e.Path, e.Fragment)
	case e.Fragment != "":
		return fmt.Sprintf("%s: %s (near %q)", e.Kind, e.Message, e.Fragment)
	case e.Path != "":
		return fmt.Sprintf("%s: %s (at %s)", e.Kind, e.Message, e.Path)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

// Is supports errors.Is(err, &TreeError{Kind: KindWrongValue}) style checks
// that only compare Kind, which is the common case for callers.
func (e *TreeError) Is(target error) bool {
	t, ok := target.(*TreeError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Errf builds a *TreeError of the given kind with a formatted message.
func Errf(kind Kind, path, format string, args ...interface{}) *TreeError {
	return &TreeError{Kind: kind, Path: path, Message: fmt.Sprintf(format, args...)}
}

// LoadErrf builds a KindLoadError carrying the offending command fragment.
func LoadErrf(fragment, format string, args ...interface{}) *TreeError {
	return &TreeError{Kind: KindLoadError, Fragment: fragment, Message: fmt.Sprintf(format, args...)}
}
