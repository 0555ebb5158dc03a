package ai

const ExtractPrompt = `
# Task Context
You are tasked with extracting **structured entity and relationship information** from the provided text. The process must capture **all details explicitly present in the text**, without omission.

# Detailed Task Description & Rules

## Entity Extraction
1. Identify all named entities in the text (people, organizations, locations, products, events, concepts).
2. For each entity, extract:
   - **title:** The name of the entity as it appears in the text.
   - **type:** A short category such as PERSON, ORGANIZATION, LOCATION, EVENT or CONCEPT.
   - **description:** A comprehensive description of the entity based only on what the text states.

## Relationship Extraction
1. Identify all relationships explicitly described between the extracted entities.
2. For each relationship, extract:
   - **source:** The title of the source entity.
   - **target:** The title of the target entity.
   - **description:** What the text says about how the two entities are related.

- Only use information present in the text. Do not invent entities or relationships.
- Source and target of every relationship must appear in the entities list.

# Background Data
Text:
%s

# Output Formatting
Return a JSON object with this structure:
{
  "entities": [
    {"title": string, "type": string, "description": string}
  ],
  "relationships": [
    {"source": string, "target": string, "description": string}
  ]
}
Output must be valid JSON only (no commentary, no extra text).
`

const CommunityReportPrompt = `
# Task Context
You are an analyst writing a report about a community of related entities extracted from a document corpus. The report helps readers understand what the community is about and why it matters.

# Background Data
%s

# Detailed Task Description & Rules
- Base the report strictly on the entity and relationship tables above.
- The title should name the community's most central entities.
- The summary is an executive overview of the community's overall structure and significance.
- Each finding is one specific insight about the community, with a short summary and a longer explanation grounded in the data.

# Output Formatting
Return a JSON object with this structure:
{
  "title": string,
  "summary": string,
  "findings": [
    {"summary": string, "explanation": string}
  ]
}
Output must be valid JSON only (no commentary, no extra text).
`

const QueryPrompt = `
# Task Context
You are a helpful assistant answering questions about a document corpus. You are given retrieved context consisting of entity descriptions and community reports.

# Background Data
Context:
%s

# Detailed Task Description & Rules
- Answer the question using only the provided context.
- If the context does not contain the answer, say that the information is not available.
- Do not use outside knowledge.
`
