package llm

import "github.com/invopop/jsonschema"

// GenerateSchema reflects a JSON schema from a Go type for structured
// outputs. Strict mode requires AllowAdditionalProperties=false and inlined
// definitions.
func GenerateSchema[T any]() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// Temp returns a pointer for setting Request.Temperature inline.
func Temp(t float64) *float64 {
	return &t
}
