package mcpserver

// ArticleFormatContract describes the stored article format for LLM
// consumers that create or update articles.
const ArticleFormatContract = `# Folio Article Format

Every article is one Markdown file named ` + "`" + `<slug>.md` + "`" + `.

## Structure

` + "```" + `markdown
---
title: "Human-readable title"
date: "2025-01-15"
excerpt: "One or two sentence summary"
image: "https://example.com/cover.jpg"
published: true
---

Body text in standard Markdown (GitHub flavoured: tables, task lists,
strikethrough, autolinks).
` + "```" + `

## Rules

1. **Slug** is lowercase ASCII letters and digits in hyphen-separated groups
   (` + "`" + `my-first-post` + "`" + `). No leading, trailing or doubled hyphens.
2. **title** and **content** are required and must not be blank.
3. **date** is ` + "`" + `YYYY-MM-DD` + "`" + `. Omit it to use today (create) or keep the stored date (update).
4. **image** is optional; omit the key entirely when there is none.
5. **published** defaults to true. Drafts are hidden from public listings.
6. Raw HTML in the body is sanitized on render; prefer Markdown equivalents.
7. Reading time is derived from the body at 200 words per minute and is never stored.
`
