package expr

import (
	"strings"
	"unicode"
)

// SanitizeName turns a workflow name into a Go identifier fragment.
//
// Parentheses are dropped. Any other character that cannot appear in an
// identifier ('$', '_', '-', spaces, ...) is removed and the following
// character is upper-cased, except at the start of the name:
//
//	"outputs_Compose"   → "outputsCompose"
//	"parameters_$api"   → "parametersApi"
//	"Send_an_email"     → "SendAnEmail"
//	"$region"           → "region"
func SanitizeName(name string) string {
	var b strings.Builder
	capitalizeNext := false

	for i, r := range name {
		if r == '(' || r == ')' {
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			capitalizeNext = i != 0
			continue
		}
		if capitalizeNext {
			r = unicode.ToUpper(r)
		}
		b.WriteRune(r)
		capitalizeNext = false
	}
	return b.String()
}

// ParameterVariableName is the local variable bound to a named parameter.
func ParameterVariableName(name string) string {
	return SanitizeName(name) + "Param"
}

// ResultVariableName is the local variable holding a step's result.
func ResultVariableName(step string) string {
	return "resultOf" + ExportedName(step)
}

// ExportedName is SanitizeName with the first letter upper-cased. Names that
// would start with a digit get a "Step" prefix.
func ExportedName(name string) string {
	s := SanitizeName(name)
	if s == "" {
		return "Step"
	}
	r := []rune(s)
	if unicode.IsDigit(r[0]) {
		return "Step" + s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
