// Package export writes market-cap entry lists as JSON, YAML, or XLSX.
package export

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/funscreener/internal/marketcap"
)

// Format names an output encoding.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatXLSX Format = "xlsx"
)

// SheetName is the worksheet written by the XLSX format.
const SheetName = "marketcap"

// Header is the column order used by tabular formats.
var Header = []string{
	"companyid", "marketcap", "pricingdate", "usdmarketcap",
	"companyname", "tickersymbol", "currency", "exchange", "country",
}

// ParseFormat resolves a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatYAML, FormatXLSX:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", eris.Errorf("export: unknown format %q (want json, yaml or xlsx)", s)
	}
}

// Write encodes entries to w in the given format.
func Write(w io.Writer, format Format, entries []marketcap.Entry) error {
	if entries == nil {
		entries = []marketcap.Entry{}
	}
	switch format {
	case FormatJSON:
		return writeJSON(w, entries)
	case FormatYAML:
		return writeYAML(w, entries)
	case FormatXLSX:
		return writeXLSX(w, entries)
	default:
		return eris.Errorf("export: unknown format %q", format)
	}
}

// WriteFile writes entries to path, or to stdout when path is empty.
// XLSX output requires a path.
func WriteFile(path string, format Format, entries []marketcap.Entry) error {
	if path == "" {
		if format == FormatXLSX {
			return eris.New("export: xlsx output requires --out")
		}
		return Write(os.Stdout, format, entries)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create output file")
	}
	if err := Write(f, format, entries); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return eris.Wrap(f.Close(), "export: close output file")
}

func writeJSON(w io.Writer, entries []marketcap.Entry) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(entries), "export: encode json")
}

func writeYAML(w io.Writer, entries []marketcap.Entry) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(entries); err != nil {
		return eris.Wrap(err, "export: encode yaml")
	}
	return eris.Wrap(enc.Close(), "export: flush yaml")
}

func writeXLSX(w io.Writer, entries []marketcap.Entry) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range Header {
		header.AddCell().SetString(h)
	}

	for _, e := range entries {
		row := sheet.AddRow()
		row.AddCell().SetInt64(e.CompanyID)
		row.AddCell().SetFloat(e.MarketCap)
		row.AddCell().SetString(e.PricingDate)
		row.AddCell().SetFloat(e.USDMarketCap)
		row.AddCell().SetString(e.CompanyName)
		row.AddCell().SetString(e.TickerSymbol)
		row.AddCell().SetString(e.Currency)
		row.AddCell().SetString(e.Exchange)
		row.AddCell().SetString(e.Country)
	}

	return eris.Wrap(f.Write(w), "export: write xlsx")
}
