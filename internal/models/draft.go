package models

// Draft is the final artifact of a run.
type Draft struct {
	Intent       Intent        `json:"intent" yaml:"intent"`
	Email        Email         `json:"email" yaml:"email"`
	Alternatives []Alternative `json:"alternatives" yaml:"alternatives" validate:"max=2,dive"`
}

type Intent struct {
	Signals   []IntentSignal `json:"signals" yaml:"signals" validate:"dive"`
	Tone      Tone           `json:"tone" yaml:"tone" validate:"required,oneof=formal casual friendly urgent"`
	Objective string         `json:"objective" yaml:"objective" validate:"required"`
}

// IntentSignal ties a signal category to the talking point it supports.
type IntentSignal struct {
	Type         SignalType `json:"type" yaml:"type" validate:"required,oneof=hiring funding techstack expansion news"`
	Relevance    string     `json:"relevance" yaml:"relevance"`
	TalkingPoint string     `json:"talkingPoint" yaml:"talkingPoint"`
}

type Email struct {
	Subject      string `json:"subject" yaml:"subject" validate:"required,max=100"`
	Body         string `json:"body" yaml:"body" validate:"required"`
	CallToAction string `json:"callToAction" yaml:"callToAction"`
}

type Alternative struct {
	Subject     string `json:"subject" yaml:"subject" validate:"required"`
	OpeningLine string `json:"openingLine" yaml:"openingLine"`
}

// Clone returns a deep copy.
func (d *Draft) Clone() *Draft {
	if d == nil {
		return nil
	}
	out := *d
	if d.Intent.Signals != nil {
		out.Intent.Signals = append([]IntentSignal{}, d.Intent.Signals...)
	}
	if d.Alternatives != nil {
		out.Alternatives = append([]Alternative{}, d.Alternatives...)
	}
	return &out
}
