package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the raw prompt template for the given name.
	Load(name string) (string, error)

	// Render executes the named template with data.
	Render(name string, data any) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptCriterion assesses one criterion against retrieved evidence.
	// Data: Criterion, Focus, Photo, Evidence, Min, Max.
	PromptCriterion = "criterion"

	// PromptCorrective re-asks after an invalid criterion response.
	// Data: Criterion, Min, Max, Previous, Problem.
	PromptCorrective = "corrective"

	// PromptSummary writes the overall assessment from the criterion scores.
	// Data: Photo, Scores, Max.
	PromptSummary = "summary"

	// PromptTranslate translates one piece of feedback.
	// Data: Source, Target, Text.
	PromptTranslate = "translate"
)
