package mcpserver

// LayoutContract describes the workspace layout that LLM consumers must
// respect when reading or producing document files.
const LayoutContract = `# Vellum Workspace Layout Contract

Vellum tracks two kinds of versioned text documents.

## Commands

` + "```" + `
<command-root>/
  <category>/name.md      # category drawn from the configured label set
  name.md                 # directly under the root => "uncategorized"
` + "```" + `

## Plans

` + "```" + `
<plan-root>/
  draft/name.md
  approved/name.md
  completed/name.md
` + "```" + `

A plan's lifecycle status is read from the directory it lives in at sync
time and recorded alongside each content version.

## Rules

1. **Files are UTF-8 text** with the configured extension (default ` + "`" + `.md` + "`" + `).
2. **Logical names** are derived from the file stem, slugged to lowercase
   kebab-case. ` + "`" + `Deploy Checklist.md` + "`" + ` becomes ` + "`" + `deploy-checklist` + "`" + `.
3. **Names are globally unique.** The same logical name under two
   directories is ambiguous and the sync pass rejects every occurrence.
4. **Deleting a file never deletes history.** The store keeps the
   document and all prior versions; only a flatten pass writes files back.
5. **Every content change creates a new version.** Prior content is
   archived automatically; use the rollback tool to restore any version.
`
