package document

// HelpText replaces a help! tag. Tag names in the examples are
// upper-cased so the help itself never triggers processing.
const HelpText = `# Inkwell Help

> **About the examples below.** All tag examples in this help use
> **UPPERCASE** (` + "`<AI!>`, `<REPLY!>`" + `) so they are not processed when
> this help sits in a note. When you write your own tags, **use
> lowercase**: ` + "`<ai!>`, `<reply!>`, `<model!>`" + `, etc.

## Basic Usage

Add an AI block to any note and include ` + "`<REPLY!>`" + ` where you want the
response:

` + "```" + `
<AI!>
What are the key points in this note?
<REPLY!>
</AI!>
` + "```" + `

Save the file, and the AI will respond where ` + "`<REPLY!>`" + ` was placed.
Add more text and another ` + "`<REPLY!>`" + ` after the answer to continue the
conversation.

## AI Model & Parameters

- ` + "`<MODEL!name>`" + ` - Choose the model to answer with
- ` + "`<TEMPERATURE!0.7>`" + ` - Set randomness (0.0-1.0)
- ` + "`<MAX_TOKENS!4000>`" + ` - Set max response length
- ` + "`<SYSTEM!prompt_name>`" + ` - Use a prompt from your vault's Prompts folder
- ` + "`<THINK!>`" + ` or ` + "`<THINK!8000>`" + ` - Enable extended thinking, optionally with a token budget
- ` + "`<DEBUG!>`" + ` - Log block parameters and the resolved conversation
- ` + "`<MOCK!>`" + ` - Answer with the offline mock backend (for trying things out)

## Content References

- ` + "`<THIS!>`" + ` - Include the current document
- ` + "`<DOC!path>`" + ` or ` + "`<DOC![[Note Name]]>`" + ` - Include another document
- ` + "`<FILE!path>`" + ` - Include any file
- ` + "`<PDF!path>`" + ` - Include a PDF (extracts text)
- ` + "`<PROMPT!name>`" + ` - Include a prompt from the Prompts folder
- ` + "`<URL!https://...>`" + ` - Fetch and include webpage content
- ` + "`<IMAGE!path>`" + ` - Include an image for vision models

## Tools

Enable AI tools with ` + "`<TOOLS!toolset>`" + `:

- ` + "`system`" + ` - File operations, shell commands, webpage fetching
- ` + "`notes`" + ` - Read and search the notes in your vault

Example with tools:
` + "```" + `
<AI!>
<TOOLS!notes>
<TOOLS!system>
Find every note that mentions the kitchen remodel and save a summary.
<REPLY!>
</AI!>
` + "```" + `

## Scripts

` + "`<SCRIPT!name>`" + ` runs a script from your vault's scripts folder and
replaces the tag with its output. A markdown script runs the first
fenced code block in the file; a plain file runs directly.

## Tag Formats

Tags support multiple formats (shown uppercase here, use lowercase when
writing):
- ` + "`<NAME!value>`" + ` - Self-closing with value
- ` + "`<NAME!>content</NAME!>`" + ` - With content block
- ` + "`<NAME![[Wiki Link]]>`" + ` - Wiki links
- ` + "`<NAME!\"quoted value\">`" + ` - Quoted values for spaces

## Examples

**Simple question:**
` + "```" + `
<AI!>
Summarize this note in 3 bullet points.
<THIS!>
<REPLY!>
</AI!>
` + "```" + `

**With a custom model and system prompt:**
` + "```" + `
<AI!>
<MODEL!opus>
<SYSTEM!code_reviewer>
Review this code for potential issues.
<REPLY!>
</AI!>
` + "```" + `

**Analyzing an image:**
` + "```" + `
<AI!>
<IMAGE!Screenshots/diagram.png>
Explain what this diagram shows.
<REPLY!>
</AI!>
` + "```" + `

**Rewriting the whole note** (the ` + "`all`" + ` option replaces the document
with the response; ` + "`rep`" + ` replaces just the block):
` + "```" + `
<AI!all>
Fix the spelling and tighten the prose.
<REPLY!>
</AI!>
` + "```" + `
`
