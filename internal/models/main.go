// Package models defines the core data structures exchanged with the
// CardScope backend: card records, scan results, and library listings.
package models

// CardRecord describes one identified trading card. Field names follow
// the backend's JSON schema; the client passes them through for display
// and persistence without interpreting them.
type CardRecord struct {
	// ID is the backend-assigned identifier, present only on persisted cards.
	ID int64 `json:"id,omitempty"`
	// Name is the card's printed name.
	Name string `json:"name"`
	// Game identifies the trading-card game the card belongs to.
	Game string `json:"game"`
	// SetCode is the short code of the set the card was printed in.
	SetCode string `json:"set_code"`
	// CardNumber is the collector number within the set.
	CardNumber string `json:"card_number"`
	// Rarity is the printed rarity, when known.
	Rarity string `json:"rarity,omitempty"`
	// Price is the current market price as reported by the backend.
	Price string `json:"price,omitempty"`
	// Description holds flavor or rules text, when known.
	Description string `json:"description,omitempty"`
	// ImageURL points at a reference image of the card, when known.
	ImageURL string `json:"image_url,omitempty"`
}

// ScanResult is the backend's answer to one submitted capture.
// CardData is nil when the backend could not identify a card with
// sufficient confidence; that is a valid outcome, not an error.
type ScanResult struct {
	// ScanMethod names the recognition strategy the backend used ("ocr", "ml", ...).
	ScanMethod string `json:"scan_method"`
	// Confidence is the backend's match confidence in [0,1].
	Confidence float64 `json:"confidence"`
	// RequiresConfirmation is set when the backend wants the user to
	// verify the match before saving.
	RequiresConfirmation bool `json:"requires_confirmation"`
	// CardData is the matched card, or nil for "no match".
	CardData *CardRecord `json:"card_data"`
}

// SaveCardRequest is the payload for persisting a reviewed card.
type SaveCardRequest struct {
	CardRecord
	// Confidence is carried over from the scan that produced the card.
	Confidence float64 `json:"confidence"`
	// ImagePath is reserved for a stored capture location; the client
	// sends it empty.
	ImagePath string `json:"image_path"`
}

// TokenResponse is the body of a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
}

// TrainResponse is the body returned by a training trigger.
type TrainResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
