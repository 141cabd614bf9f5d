package agent

import "github.com/anthropics/anthropic-sdk-go"

// Built-in agent definitions. Each is a ClaudeAgent with a focused
// system prompt; the planner targets them by name.
const (
	researchSystem = `You are a research agent. Retrieve and synthesize factual
information for the given query. Cite concrete figures and dates where
you can. Answer with findings only, no preamble.`

	analysisSystem = `You are an analysis agent. Given data or findings in the
query, produce a structured assessment: key observations, risks, and a
short conclusion.`

	writerSystem = `You are a writing agent. Turn the material in the query
into clear prose for the end user. Be concise and direct.`

	monitorSystem = `You are a monitoring agent. Check the condition described
in the query and report the current state in one short paragraph.
Flag notable changes prominently.`
)

// BuiltinAgents constructs the default agent set over one shared client.
func BuiltinAgents(client anthropic.Client, model anthropic.Model) []Agent {
	return []Agent{
		NewClaudeAgent("research", researchSystem, client, model),
		NewClaudeAgent("analysis", analysisSystem, client, model),
		NewClaudeAgent("writer", writerSystem, client, model),
		NewClaudeAgent("monitor", monitorSystem, client, model),
	}
}
