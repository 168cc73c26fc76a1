// Package taxonomy holds the static lookup tables shared by the client:
// project phases, member role types, roadmap buckets and default feed categories.
package taxonomy

import (
	"strings"

	"workspace-client/pkg/models"
)

// Phase is a stage a project moves through
type Phase struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Order int    `json:"order"`
}

// RoleType is a self-declared role of a workspace member
type RoleType struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Bucket is a roadmap column. Backend statuses collapse into buckets.
type Bucket struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

const (
	BucketNow     = "now"
	BucketNext    = "next"
	BucketLater   = "later"
	BucketShipped = "shipped"
)

var phases = []Phase{
	{ID: "ideation", Label: "Ideation", Order: 1},
	{ID: "validation", Label: "Validation", Order: 2},
	{ID: "building", Label: "Building", Order: 3},
	{ID: "launch", Label: "Launch", Order: 4},
	{ID: "growth", Label: "Growth", Order: 5},
}

var roleTypes = []RoleType{
	{ID: "founder", Label: "Founder"},
	{ID: "engineer", Label: "Engineer"},
	{ID: "designer", Label: "Designer"},
	{ID: "product", Label: "Product"},
	{ID: "marketing", Label: "Marketing"},
	{ID: "investor", Label: "Investor"},
	{ID: "advisor", Label: "Advisor"},
	{ID: "other", Label: "Other"},
}

var buckets = []Bucket{
	{ID: BucketNow, Label: "Now"},
	{ID: BucketNext, Label: "Next"},
	{ID: BucketLater, Label: "Later"},
	{ID: BucketShipped, Label: "Shipped"},
}

// backendBuckets maps every backend item status to its roadmap bucket.
var backendBuckets = map[string]string{
	"in_progress": BucketNow,
	"in_review":   BucketNow,
	"blocked":     BucketNow,
	"planned":     BucketNext,
	"ready":       BucketNext,
	"backlog":     BucketLater,
	"idea":        BucketLater,
	"done":        BucketShipped,
	"released":    BucketShipped,
}

// bucketPrimary is the status written to the backend when an item is dropped into a bucket.
var bucketPrimary = map[string]string{
	BucketNow:     "in_progress",
	BucketNext:    "planned",
	BucketLater:   "backlog",
	BucketShipped: "done",
}

var defaultCategories = []models.Category{
	{ID: "general", Name: "General"},
	{ID: "announcements", Name: "Announcements"},
	{ID: "feedback", Name: "Feedback"},
	{ID: "design", Name: "Design"},
	{ID: "engineering", Name: "Engineering"},
	{ID: "launch", Name: "Launch"},
}

func Phases() []Phase {
	return append([]Phase(nil), phases...)
}

func RoleTypes() []RoleType {
	return append([]RoleType(nil), roleTypes...)
}

func Buckets() []Bucket {
	return append([]Bucket(nil), buckets...)
}

func DefaultCategories() []models.Category {
	return append([]models.Category(nil), defaultCategories...)
}

// PhaseByID looks a phase up by id.
func PhaseByID(id string) (Phase, bool) {
	for _, p := range phases {
		if p.ID == id {
			return p, true
		}
	}
	return Phase{}, false
}

// RoleTypeByID looks a role type up by id.
func RoleTypeByID(id string) (RoleType, bool) {
	for _, r := range roleTypes {
		if r.ID == id {
			return r, true
		}
	}
	return RoleType{}, false
}

// BackendToBucket returns the bucket a backend status belongs to.
// Unknown or empty statuses land in the later bucket.
func BackendToBucket(status string) string {
	if b, ok := backendBuckets[strings.ToLower(strings.TrimSpace(status))]; ok {
		return b
	}
	return BucketLater
}

// MapBucketToBackendPrimary returns the canonical backend status for a bucket,
// or "" when the bucket is unknown.
func MapBucketToBackendPrimary(bucket string) string {
	return bucketPrimary[bucket]
}
