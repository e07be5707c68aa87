package mcpserver

// MetadataFormatURI is the resource describing the manual metadata file.
const MetadataFormatURI = "tutorials://metadata-format"

// MetadataFormat describes the manual metadata override file that LLM
// consumers may be asked to edit.
const MetadataFormat = `# Tutorial Metadata Format

Tutorial metadata is resolved in three layers; later layers win field by field:

1. **Defaults**: title from the file name (` + "`-`" + ` and ` + "`_`" + ` become spaces),
   author ` + "`AI Builders Team`" + `, difficulty ` + "`beginner`" + `, last updated = file
   modification date. Notebooks get the tags ` + "`jupyter`" + ` and ` + "`tutorial`" + `.
2. **Content**: Markdown YAML front matter (` + "`title`, `description`, `author`, `tags`, `difficulty`" + `),
   or the first ` + "`# `" + ` heading and paragraph; notebook metadata keys, or the first
   markdown cell's heading and first long line.
3. **Overrides**: the JSON file ` + "`tutorial-metadata.json`" + ` at the content root.

## Override file

` + "```" + `json
{
  "tutorials": {
    "agents/langchain.ipynb": {
      "authorId": "devon-sun",
      "lastUpdated": "2025-03-14",
      "tags": ["agents", "python"],
      "difficulty": "intermediate"
    }
  },
  "authors": {
    "devon-sun": {
      "name": "Devon Sun",
      "picture": "/images/authors/devon.png",
      "url": "https://example.com",
      "bio": "Builds agents."
    }
  }
}
` + "```" + `

## Rules

1. Keys of ` + "`tutorials`" + ` are content paths with forward slashes and their extension
   (` + "`.md`" + ` or ` + "`.ipynb`" + `).
2. ` + "`lastUpdated`" + ` is a ` + "`YYYY-MM-DD`" + ` date.
3. ` + "`difficulty`" + ` is one of ` + "`beginner`, `intermediate`, `advanced`" + `.
4. ` + "`authorId`" + ` must name an entry of ` + "`authors`" + ` when the registry is non-empty;
   an explicit ` + "`author`" + ` string overrides the registry name.
5. Omitted fields fall through to the content and default layers.
`
