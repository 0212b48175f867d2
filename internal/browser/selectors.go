package browser

// Selectors tells the adapter where things live on the chat page. Every
// field can be overridden from the config file.
type Selectors struct {
	// Input is tried in order until one matches.
	Input []string `yaml:"input"`
	// Submit buttons, tried before text matching.
	Submit []string `yaml:"submit"`
	// SubmitTexts match visible button text, case-insensitively.
	SubmitTexts []string `yaml:"submit_texts"`
	// TurnAttribute marks reply elements; its value is the turn id.
	TurnAttribute string `yaml:"turn_attribute"`
	// TurnContainer is the closest ancestor searched for action markers.
	// When empty the turn's parent element is used.
	TurnContainer string `yaml:"turn_container"`
	// ActionMarkers match affordances shown once a reply is complete.
	ActionMarkers []string `yaml:"action_markers"`
	// ActionMarkerTexts match marker buttons by visible text.
	ActionMarkerTexts []string `yaml:"action_marker_texts"`
	// Generating matches in-progress indicators inside a turn.
	Generating []string `yaml:"generating"`
	// RegenerateTexts identify the regenerate affordance by visible text.
	RegenerateTexts []string `yaml:"regenerate_texts"`
	// Regenerate selectors are checked alongside RegenerateTexts.
	Regenerate []string `yaml:"regenerate"`
}

// DefaultSelectors returns selectors that work for chat UIs exposing
// message-content-id attributes.
func DefaultSelectors() Selectors {
	return Selectors{
		Input: []string{
			"textarea",
			"[contenteditable='true']",
			"input[type='text']",
			".prompt-textarea",
			"#prompt-textarea",
		},
		Submit: []string{
			"button[type='submit']",
			"input[type='submit']",
			".submit-button",
			".send-button",
		},
		SubmitTexts:       []string{"送信", "生成", "実行", "Send", "Submit", "Generate", "Run", "Ask"},
		TurnAttribute:     "message-content-id",
		ActionMarkers:     []string{".copy-button", "[aria-label*='Copy']", "[aria-label*='コピー']"},
		ActionMarkerTexts: []string{"コピー", "Copy"},
		Generating:        []string{".thinking", ".loading", ".typing", "[data-generating='true']"},
		RegenerateTexts:   []string{"応答を再生成", "再生成", "Regenerate"},
		Regenerate:        []string{".regenerate-button"},
	}
}

// withDefaults fills empty fields from DefaultSelectors.
func (s Selectors) withDefaults() Selectors {
	d := DefaultSelectors()
	if len(s.Input) == 0 {
		s.Input = d.Input
	}
	if len(s.Submit) == 0 {
		s.Submit = d.Submit
	}
	if len(s.SubmitTexts) == 0 {
		s.SubmitTexts = d.SubmitTexts
	}
	if s.TurnAttribute == "" {
		s.TurnAttribute = d.TurnAttribute
	}
	if len(s.ActionMarkers) == 0 {
		s.ActionMarkers = d.ActionMarkers
	}
	if len(s.ActionMarkerTexts) == 0 {
		s.ActionMarkerTexts = d.ActionMarkerTexts
	}
	if len(s.Generating) == 0 {
		s.Generating = d.Generating
	}
	if len(s.RegenerateTexts) == 0 {
		s.RegenerateTexts = d.RegenerateTexts
	}
	if len(s.Regenerate) == 0 {
		s.Regenerate = d.Regenerate
	}
	return s
}
