package pipeline

import (
	"fmt"

	"github.com/hpn/hpn-blog-pipeline/internal/domain"
)

const researchSystemPrompt = `You are a meticulous research assistant for a technical blog.
Given a topic, produce a structured outline for a blog post:
- A working title
- 4 to 7 sections, each with 2 to 4 bullet points of key facts, arguments or examples
- Notes on what the target audience already knows and what they need explained
Return only the outline as markdown.`

const writeSystemPrompt = `You are an experienced blog writer.
Turn the outline you are given into a complete blog post in markdown:
- Start with a single "# " title line
- Use "## " section headings that follow the outline
- Write in full paragraphs, with lists and code blocks only where they help
- Respect the requested tone and approximate length
Return only the post.`

const editSystemPromptBase = `You are a senior editor.
Improve the draft you are given for clarity, flow, accuracy and consistency of tone.
Keep the structure and headings unless they are clearly wrong. Do not shorten the post substantially.`

const editSystemPromptNotes = editSystemPromptBase + `
Return the full edited post in markdown. If you have comments for the author, add them at the very end
under a heading that reads exactly:
%s`

const editSystemPromptPlain = editSystemPromptBase + `
Return only the full edited post in markdown, with no commentary.`

const lintSystemPrompt = `You are a markdown linter.
Fix formatting problems in the post you are given: heading levels, list indentation, blank lines around
blocks, unclosed code fences, trailing whitespace and broken links syntax.
Do not change the wording. Return only the corrected markdown.`

const seoSystemPrompt = `You are an SEO specialist.
Analyse the blog post you are given and reply with a single JSON object and nothing else:
{"title": "...", "metaDescription": "...", "tags": ["...", "..."], "summary": "..."}
- title: at most 60 characters
- metaDescription: at most 160 characters
- tags: 3 to 8 short lowercase keywords
- summary: two sentences`

func editSystemPrompt(notesMarker string) string {
	if notesMarker == "" {
		return editSystemPromptPlain
	}
	return fmt.Sprintf(editSystemPromptNotes, notesMarker)
}

func researchUserPrompt(_ string, req domain.BlogRequest) string {
	description := req.Description
	if description == "" {
		description = "(none given)"
	}
	return fmt.Sprintf("Topic: %s\nDescription: %s\nTarget audience: %s\n\nCreate the outline.",
		req.Topic, description, req.TargetAudience)
}

func writeUserPrompt(outline string, req domain.BlogRequest) string {
	return fmt.Sprintf("Tone: %s\nTarget length: about %d words\nTarget audience: %s\n\nOutline:\n%s",
		req.Tone, req.WordCount, req.TargetAudience, outline)
}

func editUserPrompt(draft string, _ domain.BlogRequest) string {
	return fmt.Sprintf("Edit this draft:\n\n%s", draft)
}

func lintUserPrompt(edited string, _ domain.BlogRequest) string {
	return fmt.Sprintf("Lint this markdown:\n\n%s", edited)
}

func seoUserPrompt(linted string, req domain.BlogRequest) string {
	return fmt.Sprintf("Topic: %s\n\nPost:\n%s", req.Topic, linted)
}
