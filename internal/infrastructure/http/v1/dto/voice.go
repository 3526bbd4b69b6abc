package dto

import (
	"github.com/shopspring/decimal"

	"bartally/internal/domain/voice"
)

// VoiceCommandRequest is a parsed utterance from the transcription
// collaborator, addressed at one counting sheet.
type VoiceCommandRequest struct {
	StocktakeID    string           `json:"stocktakeId" binding:"required,uuid"`
	Action         voice.Action     `json:"action" binding:"required"`
	ItemIdentifier string           `json:"itemIdentifier" binding:"required"`
	FullUnits      *decimal.Decimal `json:"fullUnits"`
	PartialUnits   *decimal.Decimal `json:"partialUnits"`
}

// ToCommand converts the request into a domain command.
func (r *VoiceCommandRequest) ToCommand() voice.Command {
	return voice.Command{
		Action:         r.Action,
		ItemIdentifier: r.ItemIdentifier,
		FullUnits:      r.FullUnits,
		PartialUnits:   r.PartialUnits,
	}
}
