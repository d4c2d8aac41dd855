package agents

import "github.com/bbiangul/go-scholar/llm"

// Prompt templates. Each is rendered with llm.Template placeholders.
var (
	SummaryPrompt = llm.NewTemplate("summary", `You are a helpful assistant. Summarize the following document clearly and accurately:
<context>
{context}
</context>`)

	GapPrompt = llm.NewTemplate("research_gaps", `Analyze the following summary and identify key research gaps, unanswered questions, or limitations:
{summary}`)

	IdeaPrompt = llm.NewTemplate("research_ideas", `Given the research gaps:
{gaps}
Suggest 2-3 original research project ideas or questions that address these gaps. Explain why they are valuable.`)

	DebatePrompt = llm.NewTemplate("debate", `Act as two researchers discussing a paper.
Supporter: Defends the core idea of the document.
Critic: Challenges its assumptions, methods, or impact.
Use the following summary as reference:
{summary}
Generate a short conversation between them.`)

	CitationPrompt = llm.NewTemplate("citation", `Generate an APA-style citation based on the document content:
<context>
{context}
</context>`)

	TranslatePrompt = llm.NewTemplate("translate", `Translate the following content into {language}, preserving meaning and academic tone:
{content}`)

	ChartAnalysisPrompt = llm.NewTemplate("chart_analysis", `Analyze the following data visualization and provide insights:

Data Summary: {data_summary}
Chart Type: {chart_type}

Please provide:
1. Key trends and patterns visible in the data
2. Statistical significance or notable findings
3. Implications for the research
4. Any surprising or important insights

Keep the analysis concise but informative.`)
)
