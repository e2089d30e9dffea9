package codegen

import (
	"strings"

	"github.com/dave/jennifer/jen"
)

// goType maps a UML type token to its Go rendering. Unknown tokens fall
// back to string, keeping generation total over arbitrary diagrams.
func goType(uml string) *jen.Statement {
	switch strings.ToLower(strings.TrimSpace(uml)) {
	case "string", "str", "char", "text":
		return jen.String()
	case "int", "integer", "short":
		return jen.Int()
	case "long":
		return jen.Int64()
	case "float", "double", "real", "decimal":
		return jen.Float64()
	case "bool", "boolean":
		return jen.Bool()
	case "date", "datetime", "time", "timestamp":
		return jen.Qual("time", "Time")
	default:
		return jen.String()
	}
}

// isVoid reports whether a return type token means "no value".
func isVoid(uml string) bool {
	switch strings.ToLower(strings.TrimSpace(uml)) {
	case "", "void", "none":
		return true
	}
	return false
}
