package loader

import (
	"strconv"
	"strings"

	"github.com/KaramelBytes/incidentlens/internal/table"
)

// naTokens are read as Missing.
var naTokens = map[string]bool{
	"NA": true, "N/A": true, "NaN": true, "nan": true, "NULL": true, "null": true, "#N/A": true,
}

// Infer types one raw cell: blank or NA tokens become Missing, numeric text
// becomes Number, anything else is kept as String.
func Infer(s string, opt Options) table.Value {
	raw := strings.TrimSpace(s)
	if raw == "" || naTokens[raw] {
		return table.Null()
	}
	if f, ok := parseNumeric(raw, opt); ok {
		return table.Num(f)
	}
	return table.Str(s)
}

func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.ReplaceAll(s, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if !strings.ContainsAny(raw, "0123456789") {
		return 0, false
	}
	// Decide decimal separator
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		if cpos >= 0 && dpos >= 0 {
			if cpos > dpos {
				dec = ','
				thou = '.'
			} else {
				dec = '.'
				thou = ','
			}
		} else if cpos >= 0 {
			dec = ','
		} else {
			dec = '.'
		}
	}
	// Spaces only count as grouping when configured; "0344 1822" is a code list.
	if thou == 0 {
		for _, sep := range []rune{',', '.'} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
