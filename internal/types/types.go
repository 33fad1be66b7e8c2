// Package types provides the shared data model used across autoforge's
// packages: model descriptors and holdings, inference requests/responses,
// LLM provider requests/responses, generated projects, test reports, and
// the autocorrection history. It exists to break import cycles between
// catalog, modelcache, dispatcher, providers, and autocorrect.
package types

import "time"

// Modality classifies what kind of content a model operates on.
type Modality string

const (
	ModalityText        Modality = "text"
	ModalityImage       Modality = "image"
	ModalityAudio       Modality = "audio"
	ModalityMultimodal  Modality = "multimodal"
	ModalityTraditional Modality = "traditional"
)

// BackendKind names a concrete inference executor, distinct from an LLM provider.
type BackendKind string

const (
	BackendCandle     BackendKind = "candle"
	BackendPyTorch    BackendKind = "pytorch"
	BackendTensorFlow BackendKind = "tensorflow"
	BackendONNX       BackendKind = "onnx"
	BackendMock       BackendKind = "mock"
)

// ModelDescriptor is the catalog's identity record for a model artifact.
// It is immutable once registered, except for LocalPath which is patched
// in place after a successful download.
type ModelDescriptor struct {
	ID                  string                 `json:"id"`
	Name                string                 `json:"name"`
	Version             string                 `json:"version"`
	Modality            Modality               `json:"modality"`
	Backend             BackendKind            `json:"backend"`
	MemoryBytesRequired int64                  `json:"memory_bytes_required"`
	RemoteURI           string                 `json:"remote_uri,omitempty"`
	LocalPath           string                 `json:"local_path,omitempty"`
	Metadata            map[string]interface{} `json:"metadata,omitempty"`
}

// HoldingState is the lifecycle state of a ModelHolding.
type HoldingState string

const (
	HoldingLoading   HoldingState = "loading"
	HoldingReady     HoldingState = "ready"
	HoldingFailed    HoldingState = "failed"
	HoldingUnloading HoldingState = "unloading"
	HoldingUnloaded  HoldingState = "unloaded"
)

// ModelHolding is a loaded, reference-counted instance of a ModelDescriptor.
type ModelHolding struct {
	Descriptor ModelDescriptor `json:"descriptor"`
	State      HoldingState    `json:"state"`
	FailReason string          `json:"fail_reason,omitempty"`
	LastUsed   time.Time       `json:"last_used"`
	RefCount   int             `json:"ref_count"`
	Payload    interface{}     `json:"-"`
}

// InputVariant tags which field of InferenceInput is populated.
type InputVariant string

const (
	InputText       InputVariant = "text"
	InputImage      InputVariant = "image"
	InputAudio      InputVariant = "audio"
	InputStructured InputVariant = "structured"
	InputMultimodal InputVariant = "multimodal"
)

// InferenceInput is a tagged union over the supported request payload shapes.
type InferenceInput struct {
	Variant    InputVariant           `json:"variant"`
	Text       string                 `json:"text,omitempty"`
	Image      []byte                 `json:"image,omitempty"`
	Audio      []byte                 `json:"audio,omitempty"`
	Structured map[string]interface{} `json:"structured,omitempty"`
	Multimodal []InferenceInput       `json:"multimodal,omitempty"`
}

// GenerationParams bounds decoding behavior for an inference call.
type GenerationParams struct {
	MaxTokens   int                    `json:"max_tokens,omitempty"`
	Temperature float64                `json:"temperature,omitempty"`
	TopP        float64                `json:"top_p,omitempty"`
	Beams       int                    `json:"beams,omitempty"`
	Custom      map[string]interface{} `json:"custom,omitempty"`
}

// InferenceRequest is immutable once constructed.
type InferenceRequest struct {
	RequestID       string           `json:"request_id"`
	ModelID         string           `json:"model_id"`
	Input           InferenceInput   `json:"input"`
	Params          GenerationParams `json:"params"`
	BackendOverride BackendKind      `json:"backend_override,omitempty"`
}

// OutputVariant tags which field of InferenceOutput is populated.
type OutputVariant string

const (
	OutputText           OutputVariant = "text"
	OutputClassification OutputVariant = "classification"
	OutputDetections     OutputVariant = "detections"
	OutputTranscription  OutputVariant = "transcription"
	OutputEmbedding      OutputVariant = "embedding"
	OutputStructured     OutputVariant = "structured"
)

// ClassificationResult pairs a label with its probability.
type ClassificationResult struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// Detection is a single bounding-box style detection result.
type Detection struct {
	Label       string     `json:"label"`
	Confidence  float64    `json:"confidence"`
	BoundingBox [4]float64 `json:"bounding_box,omitempty"`
}

// InferenceOutput is a tagged union over the supported response payload shapes.
type InferenceOutput struct {
	Variant         OutputVariant          `json:"variant"`
	Text            string                 `json:"text,omitempty"`
	Classifications []ClassificationResult `json:"classifications,omitempty"`
	Detections      []Detection            `json:"detections,omitempty"`
	Transcription   string                 `json:"transcription,omitempty"`
	Embedding       []float64              `json:"embedding,omitempty"`
	Structured      map[string]interface{} `json:"structured,omitempty"`
}

// InferenceMeta carries bookkeeping about how a response was produced.
type InferenceMeta struct {
	Backend         BackendKind `json:"backend"`
	WallClockMS     int64       `json:"wall_clock_ms"`
	EstimatedBytes  int64       `json:"estimated_bytes"`
	TokensProcessed int         `json:"tokens_processed,omitempty"`
	StartedAt       time.Time   `json:"started_at"`
}

// InferenceResponse echoes the request id alongside the typed output.
type InferenceResponse struct {
	RequestID string          `json:"request_id"`
	Output    InferenceOutput `json:"output"`
	Meta      InferenceMeta   `json:"meta"`
}

// ActiveSession is short-lived bookkeeping for one in-flight infer() call.
type ActiveSession struct {
	Request      InferenceRequest `json:"request"`
	StartInstant time.Time        `json:"start_instant"`
	Backend      BackendKind      `json:"backend"`
}

// LLMRequest is backend-neutral: every provider client consumes the same shape.
type LLMRequest struct {
	Prompt       string  `json:"prompt"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
	ModelHint    string  `json:"model_hint,omitempty"`
}

// LLMResponse carries the generated content and which provider served it.
type LLMResponse struct {
	Content     string `json:"content"`
	ProviderTag string `json:"provider_tag"`
}

// ProviderDescriptor configures one concrete LLM backend client.
type ProviderDescriptor struct {
	Kind      string `json:"kind"`
	APIKey    string `json:"-"`
	BaseURL   string `json:"base_url,omitempty"`
	ModelHint string `json:"model_hint,omitempty"`
	Available bool   `json:"available"`
}

// ProjectFile is a single (path, content) pair within a GeneratedProject.
type ProjectFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// GeneratedProject is mutable across autocorrection iterations.
type GeneratedProject struct {
	Language  string        `json:"language"`
	Framework string        `json:"framework,omitempty"`
	Code      string        `json:"code"`
	Files     []ProjectFile `json:"files"`
	TestFiles []ProjectFile `json:"test_files"`
}

// TestFailure describes one failing test case extracted by a Result Parser.
type TestFailure struct {
	TestName       string `json:"test_name"`
	FilePath       string `json:"file_path,omitempty"`
	LineNumber     int    `json:"line_number,omitempty"`
	FailureMessage string `json:"failure_message"`
	AssertionType  string `json:"assertion_type,omitempty"`
	Expected       string `json:"expected,omitempty"`
	Actual         string `json:"actual,omitempty"`
	StackTrace     string `json:"stack_trace,omitempty"`
}

// TestReport is the uniform output of every framework-specific parser.
type TestReport struct {
	Framework  string        `json:"framework"`
	AllPassed  bool          `json:"all_passed"`
	Total      int           `json:"total"`
	Passed     int           `json:"passed"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	DurationMS int64         `json:"duration_ms"`
	Failures   []TestFailure `json:"failures"`
	Coverage   *float64      `json:"coverage,omitempty"`
	RawOutput  string        `json:"raw_output"`
}

// FixDescription is one proposed or applied correction for a single failure.
type FixDescription struct {
	FailureSignature string `json:"failure_signature"`
	Strategy         string `json:"strategy"`
	PatchContent     string `json:"patch_content"`
	ProviderTag      string `json:"provider_tag,omitempty"`
}

// CorrectionAttempt records the outcome of one autocorrection iteration.
type CorrectionAttempt struct {
	Iteration           int              `json:"iteration"`
	FailuresBefore      int              `json:"failures_before"`
	FailuresBeforeUndef bool             `json:"failures_before_undefined"`
	FailuresAfter       int              `json:"failures_after"`
	ImprovementPercent  float64          `json:"improvement_percent"`
	FixesApplied        []FixDescription `json:"fixes_applied"`
	Success             bool             `json:"success"`
}

// AutocorrectionResult is the terminal outcome of run_autocorrection.
type AutocorrectionResult struct {
	Converged           bool                `json:"converged"`
	IterationsCompleted int                 `json:"iterations_completed"`
	FinalReport         TestReport          `json:"final_report"`
	History             []CorrectionAttempt `json:"history"`
	FinalCode           string              `json:"final_code"`
}
