package models

type Document struct {
	ID      int64  `json:"docId"`
	Name    string `json:"name"`
	Path    string `json:"path,omitempty"`
	DocType string `json:"docType,omitempty"`
	Content string `json:"content"`
	DocDate string `json:"docDate"`
	Owner   *User  `json:"owner,omitempty"`
}
