package mcpserver

// PersonaFormatContract describes the Markdown layout every persona document
// in the library follows.
const PersonaFormatContract = `# Persona Format Contract

Every persona is a Markdown file directly inside the persona directory.

## Structure

` + "```" + `markdown
---
id: reviewer                    # REQUIRED, unique across the directory
name: Code Reviewer             # REQUIRED, human-readable
description: Reviews diffs      # OPTIONAL
tags: [review, quality]         # OPTIONAL, YAML list
author: someone                 # OPTIONAL
created_at: 2025-01-15          # OPTIONAL
version: "1.0"                  # OPTIONAL
---

Persona instructions in standard Markdown.
` + "```" + `

## Rules

1. **Front matter is mandatory.** The first line is exactly ` + "`---`" + `
   (a UTF-8 byte order mark before it is tolerated).
2. **The block closes** at the first later line that is ` + "`---`" + `
   optionally followed by spaces or tabs. Everything after that line is the body.
3. **` + "`id`" + ` and ` + "`name`" + ` are required.** Unknown keys are ignored.
4. **Ids are unique.** Two files with the same id make the catalog build fail.
5. **File names** end with ` + "`.md`" + `. Files in sub-directories are not part of the catalog.
6. **Encoding** is UTF-8; LF and CRLF line endings are both accepted.

## Catalog

The catalog lists every persona sorted by id, each entry carrying its
metadata plus the ` + "`uri`" + ` clients fetch the document from. The base
instructions file applies to every persona and is read before it.
`
