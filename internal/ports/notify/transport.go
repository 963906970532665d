package notify

import "context"

// Transport entrega un mensaje de texto a un teléfono ya normalizado
// (solo dígitos, con código de país). Devuelve el ID de entrega del
// proveedor. Un intento por llamada; los reintentos son decisión del caller.
type Transport interface {
	Deliver(ctx context.Context, toPhone, body string) (deliveryID string, err error)
}
