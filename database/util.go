package database

import "github.com/pgvector/pgvector-go"

// rowScanner abstracts over *sql.Row so helper scan functions work for
// both QueryRow and Query/rows.Next call sites.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// vectorOrNil adapts a possibly-empty float32 embedding to a value the
// pgvector driver accepts, passing SQL NULL when no embedding is set yet
// (extraction and embedding happen in separate pipeline stages).
func vectorOrNil(embedding []float32) interface{} {
	if len(embedding) == 0 {
		return nil
	}
	return pgvector.NewVector(embedding)
}

// scanVectorOrNull returns a sql.Scanner that decodes a nullable pgvector
// column into v, setting *isNull when the column was NULL.
func scanVectorOrNull(v *pgvector.Vector, isNull *bool) *nullVector {
	return &nullVector{v: v, isNull: isNull}
}

type nullVector struct {
	v      *pgvector.Vector
	isNull *bool
}

func (n *nullVector) Scan(src interface{}) error {
	if src == nil {
		*n.isNull = true
		return nil
	}
	*n.isNull = false
	return n.v.Scan(src)
}
