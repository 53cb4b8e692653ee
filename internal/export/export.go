// Package export turns the transaction collection into downloadable CSV and
// JSON documents.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"cashbook/internal/core"
)

// ErrNothingToExport is returned for an empty collection.
var ErrNothingToExport = errors.New("no transactions to export")

const (
	CSVFilename     = "transactions.csv"
	JSONFilename    = "transactions.json"
	CSVContentType  = "text/csv; charset=utf-8"
	JSONContentType = "application/json"
)

// Header is the first CSV row.
var Header = []string{"Title", "Amount", "Category", "Date", "Description", "Payment Method", "Type"}

// Rows returns the header followed by one row per transaction, in
// collection order. It is the layout shared by CSV files and spreadsheets.
func Rows(txs []core.Transaction) [][]string {
	rows := make([][]string, 0, len(txs)+1)
	rows = append(rows, append([]string(nil), Header...))
	for _, t := range txs {
		rows = append(rows, []string{
			t.Title,
			t.Amount.String(),
			t.Category,
			t.Date.String(),
			t.Description,
			t.PaymentMethod,
			string(t.Type),
		})
	}
	return rows
}

// WriteCSV writes the CSV document to w. Fields with commas, quotes or line
// breaks are quoted.
func WriteCSV(w io.Writer, txs []core.Transaction) error {
	if len(txs) == 0 {
		return ErrNothingToExport
	}
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(Rows(txs)); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteJSON writes the transactions as a two-space indented JSON array.
func WriteJSON(w io.Writer, txs []core.Transaction) error {
	if len(txs) == 0 {
		return ErrNothingToExport
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(txs); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

// Document is a rendered export ready to be served as a download.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Format names an export flavour.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ErrUnknownFormat is returned by Render for anything but csv and json.
var ErrUnknownFormat = errors.New("unknown export format")

// Render builds the whole document in memory.
func Render(f Format, txs []core.Transaction) (Document, error) {
	var buf bytes.Buffer
	switch f {
	case FormatCSV:
		if err := WriteCSV(&buf, txs); err != nil {
			return Document{}, err
		}
		return Document{Filename: CSVFilename, ContentType: CSVContentType, Body: buf.Bytes()}, nil
	case FormatJSON:
		if err := WriteJSON(&buf, txs); err != nil {
			return Document{}, err
		}
		return Document{Filename: JSONFilename, ContentType: JSONContentType, Body: buf.Bytes()}, nil
	}
	return Document{}, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}
