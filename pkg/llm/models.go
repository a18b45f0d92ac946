package llm

// Task identifies the kind of analysis a completion is used for. The model
// table trades capability against speed per task.
type Task string

const (
	TaskSentiment       Task = "sentiment"
	TaskTopicExtraction Task = "topic_extraction"
	TaskSafety          Task = "safety"
	TaskGeneral         Task = "general"
)

// Production model identifiers.
const (
	ModelVersatile = "llama-3.3-70b-versatile"
	ModelInstant   = "llama-3.1-8b-instant"
	ModelEfficient = "gemma2-9b-it"
)

var taskModels = map[Task]string{
	TaskSentiment:       ModelInstant,   // speed matters, scores are coarse
	TaskTopicExtraction: ModelEfficient, // extraction over reasoning
	TaskSafety:          ModelVersatile, // strongest reasoning
	TaskGeneral:         ModelVersatile,
}

// SelectModel returns the preferred model for a task, or the general-purpose
// default for unknown tasks.
func SelectModel(task Task) string {
	if m, ok := taskModels[task]; ok {
		return m
	}
	return ModelVersatile
}

// PickModel returns the configured override when one is set, otherwise the
// per-task preference. Callers resolve their model once at construction so a
// configured model never has to live in shared state.
func PickModel(task Task, override string) string {
	if override != "" {
		return override
	}
	return SelectModel(task)
}

// EstimateTokens is a rough character-based token estimate (about four
// characters per token for English text).
func EstimateTokens(text string) int {
	return len(text) / 4
}
