package loader

import (
	"context"
	"path/filepath"
	"strings"
)

// GraphFile represents one source file in the corpus. The actual content is
// retrieved through the associated GraphFileLoader, so the same record works
// for local and remote storage.
type GraphFile struct {
	ID       string
	FilePath string
	Title    string
	Loader   GraphFileLoader
}

// NewGraphFileParams defines the input parameters for creating a new
// GraphFile instance.
type NewGraphFileParams struct {
	ID       string
	FilePath string
	Title    string
	Loader   GraphFileLoader
}

// NewGraphFile creates a new GraphFile using the provided parameters.
// When Title is empty it falls back to the file name without extension.
func NewGraphFile(params NewGraphFileParams) GraphFile {
	title := params.Title
	if title == "" {
		base := filepath.Base(params.FilePath)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return GraphFile{
		ID:       params.ID,
		FilePath: params.FilePath,
		Title:    title,
		Loader:   params.Loader,
	}
}

// GetText retrieves the raw text content of the file using its Loader.
//
// Example:
//
//	text, err := file.GetText(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(string(text))
func (f *GraphFile) GetText(ctx context.Context) ([]byte, error) {
	return f.Loader.GetFileText(ctx, *f)
}

// GraphFileLoader defines the interface for loading the contents of a GraphFile.
// Implementations may load files from disk, object storage, or other sources.
type GraphFileLoader interface {
	GetFileText(ctx context.Context, file GraphFile) ([]byte, error)
}

// CacheKey builds the loader cache key for a file.
func CacheKey(file GraphFile) string {
	return file.ID + ":" + file.FilePath
}
