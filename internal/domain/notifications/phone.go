package notifications

import "strings"

// NormalizePhone deja solo dígitos y antepone el código de país a números
// locales de 10 dígitos ("5512345678" -> "525512345678" con cc "52").
// Números más largos o más cortos pasan sin tocar: mejor intentar el envío
// que descartar un destino por formato.
func NormalizePhone(raw, countryCode string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if len(digits) == 10 && countryCode != "" && !strings.HasPrefix(digits, countryCode) {
		return countryCode + digits
	}
	return digits
}
