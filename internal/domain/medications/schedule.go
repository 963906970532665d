package medications

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// MaxSlotsPerMedication acota los horarios derivados de las instrucciones.
const MaxSlotsPerMedication = 6

var (
	intervalRe = regexp.MustCompile(`(\d+)\s*(?:horas?|hours?|hrs?|h)`)
	clockRe    = regexp.MustCompile(`(\d{1,2}):?(\d{2})?\s*(am|pm)?`)
)

// Los intervalos habituales van anclados a las 08:00 en vez de repartirse
// desde medianoche, para que la primera toma caiga en horas de vigilia.
var intervalTimes = map[int][]string{
	24: {"08:00"},
	12: {"08:00", "20:00"},
	8:  {"08:00", "16:00", "00:00"},
	6:  {"08:00", "14:00", "20:00", "02:00"},
	4:  {"08:00", "12:00", "16:00", "20:00", "00:00", "04:00"},
}

// ParseInstructions deriva horarios diarios ("HH:MM", 24h, ordenados y sin
// duplicados) desde instrucciones de dosificación en texto libre.
//
// Reglas léxicas fijas, excluyentes y en este orden: frase de intervalo
// ("cada 8 horas", "every 12 hours"), horas explícitas ("9:00 am y 9:00 pm"),
// y palabras clave de comidas/momentos del día. Si ninguna aplica devuelve
// vacío y quien llama debe pedir horarios manuales. Determinística: misma
// entrada, misma salida.
func ParseInstructions(instructions string) []string {
	text := strings.ToLower(instructions)

	times := intervalSchedule(text)
	if len(times) == 0 {
		times = explicitSchedule(text)
	}
	if len(times) == 0 {
		times = keywordSchedule(text)
	}

	return normalizeSchedule(times)
}

func intervalSchedule(text string) []string {
	m := intervalRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return nil
	}

	if fixed, ok := intervalTimes[n]; ok {
		return fixed
	}

	// Intervalos no tabulados: tomas repartidas desde las 00:00 cada n horas.
	out := make([]string, 0, 24/n)
	for i := 0; i < 24/n; i++ {
		out = append(out, fmt.Sprintf("%02d:00", i*n))
	}
	return out
}

func explicitSchedule(text string) []string {
	var out []string
	for _, m := range clockRe.FindAllStringSubmatch(text, -1) {
		hour, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}

		switch m[3] {
		case "pm":
			if hour < 12 {
				hour += 12
			}
		case "am":
			if hour == 12 {
				hour = 0
			}
		}

		if hour > 23 || minute > 59 {
			continue
		}
		out = append(out, fmt.Sprintf("%02d:%02d", hour, minute))
	}
	return out
}

func keywordSchedule(text string) []string {
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(text, w) {
				return true
			}
		}
		return false
	}

	morning := has("mañana", "morning")
	night := has("noche", "night")
	breakfast := has("desayuno", "breakfast")
	lunch := has("almuerzo", "lunch")
	dinner := has("cena", "dinner")

	switch {
	case morning && night:
		return []string{"08:00", "20:00"}
	// las tres comidas se revisan antes que el par, que las subsume
	case breakfast && lunch && dinner:
		return []string{"08:00", "13:00", "20:00"}
	case breakfast && dinner:
		return []string{"08:00", "20:00"}
	case has("una vez", "al día", "once daily", "once a day"):
		return []string{"08:00"}
	}
	return nil
}

// normalizeSchedule deduplica, ordena (lexicográfico == cronológico en
// "HH:MM") y corta a MaxSlotsPerMedication.
func normalizeSchedule(times []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(times))
	for _, t := range times {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)

	if len(out) > MaxSlotsPerMedication {
		out = out[:MaxSlotsPerMedication]
	}
	return out
}
