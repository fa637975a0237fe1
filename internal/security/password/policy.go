package password

import "unicode"

// Policy es el mínimo exigido antes de hashear. Los Require* son opcionales
// por tenant; el default solo mira el largo.
type Policy struct {
	MinLength     int
	MaxLength     int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
}

// DefaultPolicy: 6 caracteres, como los registros históricos.
var DefaultPolicy = Policy{MinLength: 6, MaxLength: 256}

type charClass struct {
	reason string
	match  func(rune) bool
}

var (
	classUpper  = charClass{"missing_upper", unicode.IsUpper}
	classLower  = charClass{"missing_lower", unicode.IsLower}
	classDigit  = charClass{"missing_digit", unicode.IsDigit}
	classSymbol = charClass{"missing_symbol", func(r rune) bool { return unicode.IsPunct(r) || unicode.IsSymbol(r) }}
)

func (p Policy) required() []charClass {
	var out []charClass
	if p.RequireUpper {
		out = append(out, classUpper)
	}
	if p.RequireLower {
		out = append(out, classLower)
	}
	if p.RequireDigit {
		out = append(out, classDigit)
	}
	if p.RequireSymbol {
		out = append(out, classSymbol)
	}
	return out
}

// Validate devuelve los códigos que fallaron (too_short, missing_digit, ...).
func (p Policy) Validate(s string) (ok bool, reasons []string) {
	runes := []rune(s)
	switch {
	case len(runes) < p.MinLength:
		reasons = append(reasons, "too_short")
	case p.MaxLength > 0 && len(runes) > p.MaxLength:
		reasons = append(reasons, "too_long")
	}
	for _, c := range p.required() {
		found := false
		for _, r := range runes {
			if c.match(r) {
				found = true
				break
			}
		}
		if !found {
			reasons = append(reasons, c.reason)
		}
	}
	return len(reasons) == 0, reasons
}
