package translator

var (
	BuildSystemPrompt   = buildSystemPrompt
	BuildResponseSchema = buildResponseSchema
)
