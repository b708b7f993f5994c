package llm

// Roles used by conversation history. Clients send the provider-neutral
// "model" role for assistant turns.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Content is one prior turn as the browser client sends it:
// {"role": "user", "parts": [{"text": "..."}]}.
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// Part is either a text fragment or an inline binary attachment.
type Part struct {
	Text       string `json:"text,omitempty"`
	InlineData *Blob  `json:"inlineData,omitempty"`
}

// Blob is a base64 payload annotated with its media type.
type Blob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// TextPart returns a text-only part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// InlinePart returns an attachment part carrying base64 data.
func InlinePart(mimeType, data string) Part {
	return Part{InlineData: &Blob{MIMEType: mimeType, Data: data}}
}

// IsInline reports whether the part is an attachment.
func (p Part) IsInline() bool {
	return p.InlineData != nil
}
