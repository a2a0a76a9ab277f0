package entities

import (
	"fmt"
	"time"
)

// record reads typed columns out of a repository record, keeping the first
// mismatch it sees.
type record struct {
	table  string
	values map[string]interface{}
	err    error
}

func (r *record) int64Col(col string) int64 {
	v, ok := r.values[col].(int64)
	if !ok {
		r.fail(col)
	}
	return v
}

func (r *record) stringCol(col string) string {
	v, ok := r.values[col].(string)
	if !ok {
		r.fail(col)
	}
	return v
}

func (r *record) optionalStringCol(col string) *string {
	switch v := r.values[col].(type) {
	case nil:
		return nil
	case string:
		return &v
	}
	r.fail(col)
	return nil
}

func (r *record) timeCol(col string) time.Time {
	v, ok := r.values[col].(time.Time)
	if !ok {
		r.fail(col)
	}
	return v
}

func (r *record) fail(col string) {
	if r.err == nil {
		r.err = fmt.Errorf("%s.%s: unexpected value %T", r.table, col, r.values[col])
	}
}

// MediaFromRecord converts a medias record into a Media
func MediaFromRecord(values map[string]interface{}) (*Media, error) {
	r := &record{table: MediaSchema.TableName, values: values}
	m := &Media{
		ID:        r.int64Col("id"),
		Title:     r.stringCol("title"),
		Username:  r.stringCol("username"),
		CreatedAt: r.timeCol("created_at"),
		UpdatedAt: r.timeCol("updated_at"),
	}
	return m, r.err
}

// PostFromRecord converts a posts record into a Post
func PostFromRecord(values map[string]interface{}) (*Post, error) {
	r := &record{table: PostSchema.TableName, values: values}
	p := &Post{
		ID:        r.int64Col("id"),
		Title:     r.stringCol("title"),
		Text:      r.stringCol("text"),
		Image:     r.optionalStringCol("image"),
		CreatedAt: r.timeCol("created_at"),
		UpdatedAt: r.timeCol("updated_at"),
	}
	return p, r.err
}

// PublicationFromRecord converts a publications record into a Publication
func PublicationFromRecord(values map[string]interface{}) (*Publication, error) {
	r := &record{table: PublicationSchema.TableName, values: values}
	p := &Publication{
		ID:        r.int64Col("id"),
		MediaID:   r.int64Col("media_id"),
		PostID:    r.int64Col("post_id"),
		Date:      r.timeCol("date"),
		CreatedAt: r.timeCol("created_at"),
		UpdatedAt: r.timeCol("updated_at"),
	}
	return p, r.err
}
