package common

// Document is a single source text in the corpus. Documents are created by
// the corpus loader and never mutated afterwards.
type Document struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Text        string   `json:"text"`
	TextUnitIDs []string `json:"text_unit_ids"`
}

// TextUnit is a bounded segment of a document's text, the atomic unit of
// extraction. Unit ids are deterministic and document-scoped so re-chunking
// an unchanged document with the same width yields the same ids.
type TextUnit struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Text       string `json:"text"`
	TokenCount int    `json:"token_count"`
}

// Entity is a named concept extracted from text. Degree, Frequency and the
// layout coordinates are zero until graph finalization enriches the record.
type Entity struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	TextUnitIDs []string `json:"text_unit_ids"`
	Degree      int      `json:"degree"`
	Frequency   int      `json:"frequency"`
	X           float64  `json:"x"`
	Y           float64  `json:"y"`
}

// Relationship is a described link between two entity titles. The finalized
// relationship table contains each (source, target) pair at most once.
type Relationship struct {
	ID             string   `json:"id"`
	Source         string   `json:"source"`
	Target         string   `json:"target"`
	Description    string   `json:"description"`
	TextUnitIDs    []string `json:"text_unit_ids"`
	CombinedDegree int      `json:"combined_degree"`
}

// Community is a cluster of entities at one level of the partition
// hierarchy. Parent is -1 for root communities. Size equals the number of
// member entities.
type Community struct {
	ID              int      `json:"id"`
	HumanReadableID int      `json:"human_readable_id"`
	Title           string   `json:"title"`
	Level           int      `json:"level"`
	Parent          int      `json:"parent"`
	Children        []int    `json:"children"`
	EntityIDs       []string `json:"entity_ids"`
	RelationshipIDs []string `json:"relationship_ids"`
	TextUnitIDs     []string `json:"text_unit_ids"`
	Period          string   `json:"period"`
	Size            int      `json:"size"`
}

// Finding is one insight inside a community report.
type Finding struct {
	Summary     string `json:"summary"`
	Explanation string `json:"explanation"`
}

// CommunityReport is the generated natural-language summary of a single
// community. FullContent holds the complete parsed report serialized as a
// JSON string, mirroring how findings are stored.
type CommunityReport struct {
	ID          string    `json:"id"`
	CommunityID int       `json:"community_id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	FullContent string    `json:"full_content"`
	Findings    []Finding `json:"findings"`
	Rank        float64   `json:"rank"`
	Period      string    `json:"period"`
	Size        int       `json:"size"`
}

// ProjectStatus tracks the lifecycle of an indexing run.
type ProjectStatus string

const (
	ProjectStatusPending    ProjectStatus = "pending"
	ProjectStatusProcessing ProjectStatus = "processing"
	ProjectStatusFinished   ProjectStatus = "finished"
	ProjectStatusFailed     ProjectStatus = "failed"
)

// Project groups one corpus and the graph built from it.
type Project struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Status ProjectStatus `json:"status"`
}
