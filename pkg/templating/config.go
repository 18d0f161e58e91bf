package templating

// TemplateConfig holds the safety limits applied to template functions.
type TemplateConfig struct {
	// MaxWords caps the maximum word count a single text call may request.
	MaxWords int `json:"max_words" yaml:"max_words"`

	// MaxParagraphs caps the number of paragraphs a single paragraphs call
	// may request.
	MaxParagraphs int `json:"max_paragraphs" yaml:"max_paragraphs"`

	// MaxRepeat caps the length of the slice returned by repeat.
	MaxRepeat int `json:"max_repeat" yaml:"max_repeat"`
}

// DefaultConfig returns a TemplateConfig with safe default values.
func DefaultConfig() *TemplateConfig {
	return &TemplateConfig{
		MaxWords:      2000,
		MaxParagraphs: 50,
		MaxRepeat:     1000,
	}
}
