package entity

import (
	"time"
)

// PublishPhase is a state of the single-flight publish state machine.
type PublishPhase string

const (
	PhaseIdle         PublishPhase = "idle"
	PhaseValidating   PublishPhase = "validating"
	PhaseSaving       PublishPhase = "saving"
	PhaseRevalidating PublishPhase = "revalidating"
	PhaseVerifying    PublishPhase = "verifying"
	PhaseComplete     PublishPhase = "complete"
	PhaseError        PublishPhase = "error"
)

// Terminal reports whether the phase ends a publish run.
func (p PublishPhase) Terminal() bool {
	return p == PhaseComplete || p == PhaseError
}

// WriteReceipt describes a durable catalog write that the store accepted.
type WriteReceipt struct {
	Fingerprint  string    `json:"fingerprint"` // SHA-256 of the encoded artifact
	SizeBytes    int64     `json:"sizeBytes"`
	ProductCount int       `json:"productCount"`
	WrittenAt    time.Time `json:"writtenAt"`
	// Verified is false when the bounded read-after-write loop could not
	// confirm the artifact; the write itself still stands.
	Verified      bool   `json:"verified"`
	VerifyWarning string `json:"verifyWarning,omitempty"`
}

// InvalidationResult records the outcome of one cache layer's invalidation.
// Duration is pre-formatted so it reads like the other diagnostics timings.
type InvalidationResult struct {
	Layer    string `json:"layer"`
	Duration string `json:"duration"`
	Err      string `json:"error,omitempty"`
}

// Failed reports whether this layer's invalidation did not go through.
func (r InvalidationResult) Failed() bool {
	return r.Err != ""
}

// PublishDiagnostics is the structured payload attached to every terminal
// publish state. It must be enough to debug propagation delay without
// re-running the operation.
type PublishDiagnostics struct {
	RunID         string               `json:"runId"`
	StartedAt     time.Time            `json:"startedAt"`
	FinishedAt    time.Time            `json:"finishedAt,omitempty"`
	PhaseTimings  map[string]string    `json:"phaseTimings,omitempty"`
	Changes       ChangeSet            `json:"changes"`
	Receipt       *WriteReceipt        `json:"receipt,omitempty"`
	Invalidations []InvalidationResult `json:"invalidations,omitempty"`
	PollAttempts  int                  `json:"pollAttempts"`
	Converged     bool                 `json:"converged"`
}

// PublishStatus is a point-in-time snapshot of the publish state machine.
type PublishStatus struct {
	Phase       PublishPhase        `json:"phase"`
	Message     string              `json:"message,omitempty"`
	Diagnostics *PublishDiagnostics `json:"diagnostics,omitempty"`
}

// CatalogSnapshot is what the public read path reports during convergence
// polling: a product count plus the SKU set actually being served.
type CatalogSnapshot struct {
	Count int      `json:"count"`
	SKUs  []string `json:"skus"`
}
