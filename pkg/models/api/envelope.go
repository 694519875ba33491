package api

import "encoding/json"

// Envelope is the response wrapper every backend endpoint uses.
// Data stays raw until the caller knows the concrete type.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Page describes a paginated list request.
type Page struct {
	Number int    `json:"pageNumber"`
	Size   int    `json:"pageSize"`
	Search string `json:"search,omitempty"`
}

// PagedData is the generic shape of a paginated list response.
type PagedData[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"totalCount"`
	PageNumber int `json:"pageNumber"`
	PageSize   int `json:"pageSize"`
}
