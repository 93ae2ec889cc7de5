package prompt

// System message templates, keyed by (conversation_kind, mode). All four
// are plain text with a single document/highlight text placeholder, except
// the full-context highlight template, which takes two (the highlighted
// passage, then the full document text); the
// wording is grounded on original_source/src/prompts/base.py's system
// prompt strings.

const systemMainTemplate = `You are a helpful assistant answering questions about a document. Use the document text below as your only source of truth — if the answer isn't in the document, say so instead of guessing.

Document:
%s`

const systemHighlightTemplate = `You are a helpful assistant answering questions about a specific passage a reader has highlighted in a document. Stay focused on the highlighted passage; use the surrounding document only for context the passage itself doesn't supply.

Highlighted passage:
%s`

const systemFullContextMainTemplate = `You are a helpful assistant answering questions about a document. The complete document text is provided below — read all of it before answering, and cite the relevant section when it helps the reader locate your answer.

Full document:
%s`

const systemFullContextHighlightTemplate = `You are a helpful assistant answering questions about a specific passage a reader has highlighted, with the complete surrounding document available below for context.

Highlighted passage:
%s

Full document:
%s`

// User message templates.

const userMainTemplate = `%s`

const userHighlightTemplate = `Regarding this passage: "%s"

%s`

// Question-generation templates.

const questionMainTemplate = `Based on the following excerpt from a document, generate %d insightful follow-up questions a reader might want to ask. Avoid repeating any of these previously asked questions: %s

Excerpt:
%s`

const questionHighlightTemplate = `Based on the following highlighted passage, generate %d insightful follow-up questions a reader might want to ask about it. Avoid repeating any of these previously asked questions: %s

Highlighted passage:
%s`

// summaryTemplate composes a single assistant message that merges a
// highlight conversation's history back into its parent main conversation.

const summaryTemplate = `A reader had a side conversation about a highlighted passage. Summarize the key takeaways from that conversation in a few sentences, written as if you are informing the reader directly, so it can be appended to the main conversation.

Highlighted passage: %s

Side conversation:
%s`
