package workflow

import "strings"

// Sentinel prefixes every failure marker written in place of content.
const Sentinel = "❌"

// User-facing failure messages, one per operation.
const (
	MsgSend     = "❌ Error al enviar la solicitud."
	MsgGenerate = "❌ Error al generar o analizar el caso de estudio."
	MsgIngest   = "❌ Error al procesar el documento."
	MsgCompare  = "Hubo un error al procesar la comparación."
	MsgExport   = "Hubo un error al generar el PDF."
)

// NotAvailable stands in for the comparison summary when no comparison has
// completed.
const NotAvailable = "No disponible"

// IsSentinel reports whether text is an upstream failure marker.
func IsSentinel(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), Sentinel)
}

// shortCircuits reports whether a generated case must not be analyzed.
func shortCircuits(caseText string) bool {
	return strings.TrimSpace(caseText) == "" || IsSentinel(caseText)
}
