package index

// TutorialIndex defines the interface for tutorial indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type TutorialIndex interface {
	Upsert(r Row, body string) error
	Delete(path string) error
	Get(path string) (*Row, error)
	List(q ListQuery) ([]Row, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies TutorialIndex at compile time.
var _ TutorialIndex = (*DB)(nil)

// Document is what an Extractor pulls out of a tutorial file for indexing.
type Document struct {
	Title       string
	Description string
	Author      string
	Difficulty  string
	Tags        []string
	Body        string
}

// Extractor turns raw file bytes into an indexable Document.
type Extractor interface {
	Extract(path string, data []byte) (Document, error)
}
