package enrich

const (
	titlePrompt = `You are to return a title that best describes the text. Use less than 20 characters.`

	summaryPrompt = `You are to summarise the text in less than 120 characters. Do not include references and links.`

	cleanPrompt = `You are to clean up the given text, including proper formatting and rephrasing, so that it is easy to understand. ` +
		`Do not rephrase a sentence if the language is already concise and clear. ` +
		`Use concise language that a B2 English proficiency speaker would use. ` +
		`Add hyperlinks where appropriate. Return the text in Markdown format.`
)

// userPrompt wraps text the same way for every enrichment call.
func userPrompt(text string) string {
	return "text: " + text
}
