package agent

import "github.com/hupe1980/meshstream/core"

// Provider supplies dynamic instruction text derived from the conversation.
type Provider interface {
	Instruction(history []core.Message) (string, error)
}

// ProviderFunc is a functional adapter to allow ordinary functions to be used as Providers.
type ProviderFunc func(history []core.Message) (string, error)

// Instruction implements Provider.
func (f ProviderFunc) Instruction(history []core.Message) (string, error) { return f(history) }

// Instruction represents either a static instruction string or a dynamic provider.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates an Instruction from a static string.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(history []core.Message) (string, error)) Instruction {
	return Instruction{provider: ProviderFunc(f)}
}

// IsStatic returns true if the instruction is backed by a static string.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// Resolve returns the instruction text, invoking the provider if needed.
func (i Instruction) Resolve(history []core.Message) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(history)
	}
	return i.text, nil
}
