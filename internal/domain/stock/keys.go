package stock

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// CanonicalKey normaliza una ciudad o agencia para compararla: recorta espacios,
// colapsa espacios internos, normaliza a NFC y aplica case folding.
// "  Bogotá  D.C." y "BOGOTÁ D.C." producen la misma clave.
func CanonicalKey(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return folder.String(norm.NFC.String(s))
}
