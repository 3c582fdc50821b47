package publish

import (
	"context"
	"time"

	"github.com/ironsheep/logistics-bot/internal/materials"
)

// Status is the outcome of a publish attempt.
type Status string

const (
	Delivered     Status = "delivered"
	LoggedLocally Status = "logged_locally"
)

// Kind tells what a SyncRecord carries.
type Kind string

const (
	KindMaterials Kind = "materials"
	KindLocation  Kind = "location"
)

// SyncRecord describes one publish attempt. It is built once and never
// modified.
type SyncRecord struct {
	ID         string           `json:"id"`
	Kind       Kind             `json:"kind"`
	Checkpoint string           `json:"checkpoint"`
	Timestamp  time.Time        `json:"timestamp"`
	Counts     materials.Counts `json:"counts"`
	Status     Status           `json:"status"`
}

// Journal keeps a history of publish attempts.
type Journal interface {
	Record(ctx context.Context, rec SyncRecord) error
}
