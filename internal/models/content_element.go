package models

// ContentElement is one tracked element written by embedded lesson content
// through the runtime bridge, namespaced as <prefix>_<lessonID>_<element>.
// Key is the primary key and deletes are hard: a set call is an overwrite,
// not an append.
type ContentElement struct {
	Key   string `json:"key" gorm:"primaryKey"`
	Value string `json:"value"`
}

// TableName specifies the table name for ContentElement Model
func (ContentElement) TableName() string {
	return "content_elements"
}
