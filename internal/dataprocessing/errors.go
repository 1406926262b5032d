package dataprocessing

import (
	"fmt"
)

// MalformedFileError indicates the uploaded bytes are not a readable spreadsheet container
type MalformedFileError struct {
	Reason string
	Err    error
}

func (e *MalformedFileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed spreadsheet: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed spreadsheet: %s", e.Reason)
}

func (e *MalformedFileError) Unwrap() error {
	return e.Err
}

// MissingColumnError names the first required column a sheet does not have
type MissingColumnError struct {
	Sheet  string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("sheet %q is missing column %q", e.Sheet, e.Column)
}

// ColumnTypeError indicates a column that must be numeric holds text
type ColumnTypeError struct {
	Sheet  string
	Column string
	Row    int // 1-based spreadsheet row of the first offending cell
	Value  string
}

func (e *ColumnTypeError) Error() string {
	return fmt.Sprintf("sheet %q column %q is not numeric (row %d: %q)", e.Sheet, e.Column, e.Row, e.Value)
}

// UnknownSheetError indicates a requested month is not a sheet of the workbook
type UnknownSheetError struct {
	Name string
}

func (e *UnknownSheetError) Error() string {
	return fmt.Sprintf("unknown sheet %q", e.Name)
}
