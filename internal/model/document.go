package model

// RoleTag is an audience category. It keys both the folder lookup in
// the document store and the partition in the knowledge cache.
type RoleTag string

// DocumentDescriptor is the result of enumerating one file in the
// store. It only lives until ingestion resolves; the cache keeps the
// derived handle and a DocumentEntry, never the descriptor.
type DocumentDescriptor struct {
	ID          string
	DisplayName string
	ViewURL     string
	Role        RoleTag
}

// DocumentEntry is one row of the user-facing document list. Entries
// whose ingestion failed are still listed, with Ready false, so users
// can see what should exist.
type DocumentEntry struct {
	DisplayName string  `json:"name"`
	ViewURL     string  `json:"url"`
	Role        RoleTag `json:"role"`
	Ready       bool    `json:"ready"`
}
