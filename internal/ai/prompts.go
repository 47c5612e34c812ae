package ai

// DefaultExtractSystemPrompt frames the extraction task
const DefaultExtractSystemPrompt = `You are an experienced technical recruiter who reads job postings and records them accurately.

- Copy facts from the posting; never invent a company, title, location, or requirement
- Leave a field empty when the posting does not state it
- Keep list items short, one requirement or skill per item
- Preserve the original language of the posting`

// DefaultExtractUserPrompt is the user prompt template; %s is the posting
const DefaultExtractUserPrompt = `Extract a structured job description record from the posting below.

**Fields:**

1. **title**: the role title as written
2. **company**: the hiring company
3. **location**: city, region, or "Remote" when stated
4. **description**: a two to four sentence summary of the role
5. **responsibilities**: what the person will do
6. **requirements**: required qualifications and experience
7. **skills**: concrete technologies, tools, and languages mentioned

**Job Posting:**
-----
%s
-----`

// resolvePrompt prefers the configured prompt over the built-in default.
// Prompts configured from files are already loaded into the config.
func resolvePrompt(fromConfig, fromDefault string) string {
	if fromConfig != "" {
		return fromConfig
	}
	return fromDefault
}
