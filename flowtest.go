package flowtest

import (
	"github.com/petrijr/flowtest/internal/engine"
	"github.com/petrijr/flowtest/internal/validation"
	"github.com/petrijr/flowtest/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api or the
// engine.

type (
	Flow                 = engine.Flow
	FlowExecution        = engine.FlowExecution
	FlowSession          = engine.FlowSession
	FlowDefinitionHolder = engine.FlowDefinitionHolder
	ExecutionSnapshot    = engine.ExecutionSnapshot

	AttributeMap          = api.AttributeMap
	ParameterMap          = api.ParameterMap
	MultipartFile         = api.MultipartFile
	Event                 = api.Event
	Message               = api.Message
	Severity              = api.Severity
	MessageBuilder        = api.MessageBuilder
	MessageContext        = api.MessageContext
	View                  = api.View
	Validator             = api.Validator
	ValidatorFunc         = api.ValidatorFunc
	ValidationContext     = api.ValidationContext
	RequestContext        = api.RequestContext
	MockExternalContext   = api.MockExternalContext
	FlowExecutionListener = api.FlowExecutionListener
	NoopListener          = api.NoopListener
	LoggingListener       = api.LoggingListener
	MetricsListener       = api.MetricsListener
	TracingListener       = api.TracingListener
	IllegalStateError     = api.IllegalStateError
	IllegalArgumentError  = api.IllegalArgumentError

	SchemaValidator = validation.SchemaValidator
)

// Re-export common helpers.

var (
	NewMessageBuilder       = api.NewMessageBuilder
	NewMockMultipartFile    = api.NewMockMultipartFile
	NewCompositeListener    = api.NewCompositeListener
	NewLoggingListener      = api.NewLoggingListener
	NewMetricsListener      = api.NewMetricsListener
	NewTracingListener      = api.NewTracingListener
	NewIllegalStateError    = api.NewIllegalStateError
	NewIllegalArgumentError = api.NewIllegalArgumentError

	// Schema validators report violations as error messages with the code
	// schema.<violation type>; set one with FlowTestContext.SetValidator.
	NewSchemaValidator          = validation.NewSchemaValidator
	NewSchemaValidatorFromBytes = validation.NewSchemaValidatorFromBytes
	NewSchemaValidatorFromFile  = validation.NewSchemaValidatorFromFile
)

// Re-export the error sentinels for errors.Is checks.

var (
	ErrIllegalState         = api.ErrIllegalState
	ErrIllegalArgument      = api.ErrIllegalArgument
	ErrFlowNotFound         = engine.ErrFlowNotFound
	ErrNoMatchingTransition = engine.ErrNoMatchingTransition
	ErrStateNotFound        = engine.ErrStateNotFound
	ErrNotResumable         = engine.ErrNotResumable
)

// Re-export severities.

const (
	SeverityInfo    = api.SeverityInfo
	SeverityWarning = api.SeverityWarning
	SeverityError   = api.SeverityError
	SeverityFatal   = api.SeverityFatal
)
