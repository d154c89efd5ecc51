package engine

import "time"

// ApplyContext provides all the state and collaborators needed to apply an
// operation. It is passed to Appliable.Apply() instead of individual
// parameters.
type ApplyContext struct {
	// View is the change-tracking state table for this operation
	View StateView

	// Registry is the external asset custody collaborator
	Registry AssetRegistry

	// Now is the engine clock reading taken when the operation entered
	// the pipeline. Deadline checks use this single reading.
	Now time.Time

	// Config holds engine configuration (overpayment policy, operator id)
	Config Config

	// Engine provides access to shared helpers
	Engine *Engine

	// pending holds notifications queued during apply; the engine
	// delivers them only after the commit succeeds.
	pending []pendingEvent

	// offerID records the offer the operation acted on, reported back to
	// the caller in the apply result.
	offerID uint64
}

// SetOfferID records the offer id the operation acted on.
func (ctx *ApplyContext) SetOfferID(id uint64) {
	ctx.offerID = id
}
