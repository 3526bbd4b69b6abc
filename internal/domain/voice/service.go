package voice

import (
	"context"

	"github.com/shopspring/decimal"

	"bartally/internal/core/apperror"
	"bartally/internal/core/id"
	"bartally/internal/domain/catalogs/item"
	"bartally/internal/domain/documents/stocktake"
	"bartally/pkg/logger"
)

// Action is the parsed command verb.
type Action string

const ActionCount Action = "count"

// Command is the parsed instruction delivered by the transcription
// collaborator. Nil units mean "not spoken" and count as zero.
type Command struct {
	Action         Action           `json:"action"`
	ItemIdentifier string           `json:"itemIdentifier"`
	FullUnits      *decimal.Decimal `json:"fullUnits,omitempty"`
	PartialUnits   *decimal.Decimal `json:"partialUnits,omitempty"`
}

// Validate checks command shape before resolution.
func (c Command) Validate() error {
	if c.Action != ActionCount {
		return apperror.NewValidation("unsupported voice action").
			WithDetail("action", string(c.Action))
	}
	if c.ItemIdentifier == "" {
		return apperror.NewValidation("item identifier is required").
			WithDetail("field", "itemIdentifier")
	}
	return nil
}

// ItemSource supplies active catalog items for alias lookup.
// Satisfied by item.Service and by the cached item index.
type ItemSource interface {
	ListActive(ctx context.Context) ([]*item.Item, error)
}

// Counter applies a resolved count through the manual-entry path.
// Satisfied by stocktake.Service.
type Counter interface {
	GetByID(ctx context.Context, docID id.ID) (*stocktake.Stocktake, error)
	RecordCount(ctx context.Context, docID, lineID id.ID, full, partial decimal.Decimal, source stocktake.CountSource, actor string) (*stocktake.CountResult, error)
}

// Result echoes a successfully applied voice count.
type Result struct {
	Match Match                  `json:"match"`
	Count *stocktake.CountResult `json:"count"`
}

// Service resolves voice commands against a stocktake and applies them.
type Service struct {
	sheets   Counter
	items    ItemSource
	resolver *Resolver
}

// NewService creates a voice command service.
func NewService(sheets Counter, items ItemSource) *Service {
	return &Service{
		sheets:   sheets,
		items:    items,
		resolver: NewResolver(),
	}
}

// Apply resolves the spoken item against the sheet's lines and records the
// count. Resolution considers only items present on the sheet; matching uses
// catalog names and aliases, falling back to the line's name snapshot for
// items since removed from the catalog.
func (s *Service) Apply(ctx context.Context, stocktakeID id.ID, cmd Command, actor string) (*Result, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	doc, err := s.sheets.GetByID(ctx, stocktakeID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.candidates(ctx, doc)
	if err != nil {
		return nil, err
	}

	match, err := s.resolver.Resolve(cmd.ItemIdentifier, candidates)
	if err != nil {
		return nil, err
	}

	var lineID id.ID
	for i := range doc.Lines {
		if doc.Lines[i].ItemID == match.ItemID {
			lineID = doc.Lines[i].LineID
			break
		}
	}

	full := decimal.Zero
	if cmd.FullUnits != nil {
		full = *cmd.FullUnits
	}
	partial := decimal.Zero
	if cmd.PartialUnits != nil {
		partial = *cmd.PartialUnits
	}

	count, err := s.sheets.RecordCount(ctx, stocktakeID, lineID, full, partial, stocktake.SourceVoice, actor)
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "voice count applied",
		"stocktake_id", stocktakeID,
		"utterance", cmd.ItemIdentifier,
		"item", match.Term,
		"score", match.Score)
	return &Result{Match: match, Count: count}, nil
}

// candidates builds the match set: one candidate per sheet line, with alias
// terms joined in from the catalog where available.
func (s *Service) candidates(ctx context.Context, doc *stocktake.Stocktake) ([]Candidate, error) {
	aliases := make(map[id.ID][]string)
	if s.items != nil {
		items, err := s.items.ListActive(ctx)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			aliases[it.ID] = it.SearchTerms()
		}
	}

	out := make([]Candidate, 0, len(doc.Lines))
	for i := range doc.Lines {
		l := &doc.Lines[i]
		terms, ok := aliases[l.ItemID]
		if !ok {
			terms = []string{l.ItemName}
		}
		out = append(out, Candidate{ItemID: l.ItemID, Terms: terms})
	}
	return out, nil
}
