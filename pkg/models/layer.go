package models

// Layer is a sub-resource of an Organization that can receive its own invites
type Layer struct {
	ID             int64  `json:"id"`
	OrganizationID int64  `json:"orgId"`
	Name           string `json:"name"`
}

// CreateLayerRequest is the body of POST /layers
type CreateLayerRequest struct {
	OrganizationID int64  `json:"orgId"`
	Name           string `json:"name"`
}

// Category is a user-customized feed category
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}
