package reminders

import (
	"fmt"

	"medirecord/internal/domain/medications"
)

// Plantillas de los mensajes salientes. El texto va en español porque es el
// idioma de los pacientes; el formato con negritas (*SI*) es el que entiende
// WhatsApp.

func ReminderMessage(patientName string, med medications.Medication, at medications.ClockTime) string {
	return fmt.Sprintf(
		"MediRecord: RECORDATORIO\n"+
			"Hola %s, es hora de tu medicamento.\n\n"+
			"💊 Medicamento: %s\n"+
			"📦 Dosis: %s\n"+
			"📝 Instrucciones: %s\n"+
			"🕒 Hora programada: %s\n\n"+
			"Por favor, responda *SI* cuando haya tomado su medicamento.",
		patientName, med.Name, med.Dose, med.Instructions, at,
	)
}

func ThankYouMessage(patientName string) string {
	return fmt.Sprintf("✅ Gracias %s por confirmar que tomó su medicamento. ¡Que tenga un buen día!", patientName)
}

func CaregiverNoticeMessage(patientName, medicationName, dose string, at medications.ClockTime) string {
	return fmt.Sprintf("%s ha confirmado la toma de %s - %s a las %s", patientName, medicationName, dose, at)
}

func SelfConfirmationMessage(medicationName string, at medications.ClockTime) string {
	return fmt.Sprintf("✅ Se registró la toma de %s a las %s.", medicationName, at)
}
