package context

const summaryHeader = "Summary of the earlier conversation:\n"

const summarizerSystemPrompt = "You maintain the running summary of a conversation between a user and an AI assistant. " +
	"The summary replaces the messages it covers, so the assistant must be able to continue the conversation from it alone. " +
	"Keep every concrete detail the user shared: names, dates, numbers, preferences, decisions and open questions. " +
	"Write plain prose in the third person. Do not add greetings, commentary or markdown headings."

const cumulativeInstruction = "Update the existing summary so that it also covers the new messages. " +
	"Return only the complete updated summary."

const batchInstruction = "Summarize the following messages. Return only the summary."
