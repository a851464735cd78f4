package validation

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/petrijr/flowtest/pkg/api"
)

// SchemaValidator validates models against a JSON schema. Every violation
// becomes an error message whose source is the violating field and whose
// code is schema.<violation type>.
type SchemaValidator struct {
	schema *gojsonschema.Schema
}

var _ api.Validator = (*SchemaValidator)(nil)

// NewSchemaValidator compiles the schema loaded by loader.
func NewSchemaValidator(loader gojsonschema.JSONLoader) (*SchemaValidator, error) {
	schema, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return nil, fmt.Errorf("compile json schema: %w", err)
	}
	return &SchemaValidator{schema: schema}, nil
}

// NewSchemaValidatorFromBytes compiles a schema document.
func NewSchemaValidatorFromBytes(schema []byte) (*SchemaValidator, error) {
	return NewSchemaValidator(gojsonschema.NewBytesLoader(schema))
}

// NewSchemaValidatorFromFile compiles the schema stored at path.
func NewSchemaValidatorFromFile(path string) (*SchemaValidator, error) {
	return NewSchemaValidator(gojsonschema.NewReferenceLoader("file://" + path))
}

// Validate marshals model to JSON and validates the document. A model that
// cannot be marshalled is reported as a single schema.marshal message.
func (v *SchemaValidator) Validate(model any, ctx api.ValidationContext) {
	doc, err := json.Marshal(model)
	if err != nil {
		ctx.MessageContext().AddMessage(api.NewMessageBuilder().Error().
			Code("schema.marshal").DefaultText(err.Error()).Build())
		return
	}
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		ctx.MessageContext().AddMessage(api.NewMessageBuilder().Error().
			Code("schema.invalid").DefaultText(err.Error()).Build())
		return
	}
	for _, desc := range result.Errors() {
		ctx.MessageContext().AddMessage(api.NewMessageBuilder().Error().
			Source(field(desc)).
			Code("schema." + desc.Type()).
			DefaultText(desc.Description()).
			Build())
	}
}

// field is the violating property. Root level violations such as a
// missing required property name the property itself.
func field(desc gojsonschema.ResultError) string {
	if f := desc.Field(); f != gojsonschema.STRING_CONTEXT_ROOT {
		return f
	}
	if p, ok := desc.Details()["property"].(string); ok {
		return p
	}
	return ""
}
