package conv

// Field names of the structs on the wire. These match the JSON that the
// service has always spoken, so don't rename them.
const (
	FieldFrom       = "from"
	FieldTo         = "to"
	FieldPrimes     = "primeNumbers"
	FieldInstanceID = "instanceId"
)
