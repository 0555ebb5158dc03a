package queue

// QueueFile describes one corpus file inside an indexing job. Source
// selects the loader: "s3" reads from the configured bucket, "io" from
// the worker's local filesystem.
type QueueFile struct {
	ID       string `json:"id"`
	FilePath string `json:"file_path"`
	Title    string `json:"title"`
	Source   string `json:"source"`
}

// QueueIndexJobMsg is the payload of a lattice_index message.
type QueueIndexJobMsg struct {
	Message   string      `json:"message"`
	ProjectID string      `json:"project_id"`
	Files     []QueueFile `json:"files"`
}
