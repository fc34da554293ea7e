package models

// GeneratedReply is the validated output of reply generation: both fields
// are always non-empty, whether they came from the model or the fallback.
type GeneratedReply struct {
	PublicReply   string `json:"publicReply"`
	DirectMessage string `json:"directMessage"`
}

// GenerateResult wraps a reply with its provenance. Fallback is true when
// the model call failed or returned something that did not validate, making
// "the generator never fails" a property of the type rather than a
// convention.
type GenerateResult struct {
	Reply    GeneratedReply
	Fallback bool
}
