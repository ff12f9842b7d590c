// Package gcov decodes per-executable gcov JSON coverage documents.
//
// Decoding is strict: every key covmap relies on must be present, spelled
// exactly, with the right type. Any violation is reported as
// ErrMalformedDocument instead of failing later during field access. Keys
// covmap does not use are ignored whatever their type.
package gcov

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Document is one coverage document: all functions of one instrumented executable for one test run.
type Document struct {
	DataFile string `json:"data_file"`
	Files    []File `json:"files"`

	// Rejected lists functions left out because their block counts contradict each other.
	Rejected []Rejection `json:"rejected,omitempty"`
}

// File groups the functions of one source file.
type File struct {
	Path      string     `json:"file"`
	Functions []Function `json:"functions"`
}

// Function carries the basic block counts of a single function.
type Function struct {
	Name           string `json:"name"`
	Blocks         int    `json:"blocks"`
	BlocksExecuted int    `json:"blocks_executed"`
}

// Rejection names a function dropped from an otherwise valid document.
type Rejection struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// String implements fmt.Stringer.
func (r Rejection) String() string {
	return r.Field + ": " + r.Reason
}

// Entry is a function with at least one executed block, flattened with its source file.
type Entry struct {
	SourceFile   string
	FunctionName string
	Coverage     float64
}

// Coverage returns executed blocks divided by total blocks, or 0 when the function has no blocks.
func (f Function) Coverage() float64 {
	if f.Blocks == 0 {
		return 0
	}
	return float64(f.BlocksExecuted) / float64(f.Blocks)
}

// Entries returns every function with executed blocks in document order.
// Functions that never executed carry no signal and are left out.
func (d *Document) Entries() []Entry {
	var entries []Entry
	for _, file := range d.Files {
		for _, fn := range file.Functions {
			if fn.BlocksExecuted == 0 {
				continue
			}
			entries = append(entries, Entry{
				SourceFile:   file.Path,
				FunctionName: fn.Name,
				Coverage:     fn.Coverage(),
			})
		}
	}
	return entries
}

// object is one JSON object of the wire format. Lookups are exact, unlike
// struct decoding which folds key case.
type object map[string]json.RawMessage

// Parse decodes and validates the raw bytes of one coverage document.
func Parse(data []byte) (*Document, error) {
	var top object
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, &MalformedDocumentError{Reason: "invalid JSON", Err: err}
	}
	if top == nil {
		return nil, invalidValue("", "document is null")
	}

	doc := &Document{}
	if err := top.required("data_file", "", &doc.DataFile); err != nil {
		return nil, err
	}
	var files []json.RawMessage
	if err := top.required("files", "", &files); err != nil {
		return nil, err
	}

	doc.Files = make([]File, 0, len(files))
	for i, rawFile := range files {
		file, err := decodeFile(doc, rawFile, fmt.Sprintf("files[%d]", i))
		if err != nil {
			return nil, err
		}
		doc.Files = append(doc.Files, file)
	}

	return doc, nil
}

func decodeFile(doc *Document, data json.RawMessage, path string) (File, error) {
	obj, err := decodeObject(data, path)
	if err != nil {
		return File{}, err
	}

	var file File
	if err := obj.required("file", path, &file.Path); err != nil {
		return File{}, err
	}
	var functions []json.RawMessage
	if err := obj.required("functions", path, &functions); err != nil {
		return File{}, err
	}

	file.Functions = make([]Function, 0, len(functions))
	for j, rawFn := range functions {
		fnPath := fmt.Sprintf("%s.functions[%d]", path, j)
		fn, err := decodeFunction(rawFn, fnPath)
		if err != nil {
			return File{}, err
		}
		// Zero instrumented blocks is tolerated and reported as 0 coverage.
		if fn.Blocks > 0 && fn.BlocksExecuted > fn.Blocks {
			doc.Rejected = append(doc.Rejected, Rejection{
				Field:  fnPath,
				Reason: fmt.Sprintf("function %s: %d executed exceeds %d blocks", fn.Name, fn.BlocksExecuted, fn.Blocks),
			})
			continue
		}
		file.Functions = append(file.Functions, fn)
	}
	return file, nil
}

func decodeFunction(data json.RawMessage, path string) (Function, error) {
	obj, err := decodeObject(data, path)
	if err != nil {
		return Function{}, err
	}

	var fn Function
	if err := obj.required("name", path, &fn.Name); err != nil {
		return Function{}, err
	}
	if err := obj.required("blocks", path, &fn.Blocks); err != nil {
		return Function{}, err
	}
	if err := obj.required("blocks_executed", path, &fn.BlocksExecuted); err != nil {
		return Function{}, err
	}

	if fn.Blocks < 0 {
		return Function{}, invalidValue(join(path, "blocks"), "negative count %d", fn.Blocks)
	}
	if fn.BlocksExecuted < 0 {
		return Function{}, invalidValue(join(path, "blocks_executed"), "negative count %d", fn.BlocksExecuted)
	}
	return fn, nil
}

// decodeObject decodes a nested JSON object; null entries are malformed.
func decodeObject(data json.RawMessage, path string) (object, error) {
	if isNull(data) {
		return nil, invalidValue(path, "entry is null")
	}
	var obj object
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, &MalformedDocumentError{Field: path, Reason: "expected an object", Err: err}
	}
	return obj, nil
}

// required decodes the value of key into v. A null value counts as missing.
func (o object) required(key, path string, v any) error {
	field := join(path, key)
	data, ok := o[key]
	if !ok || isNull(data) {
		return missingKey(field)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &MalformedDocumentError{Field: field, Reason: "wrong type", Err: err}
	}
	return nil
}

func isNull(data json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
