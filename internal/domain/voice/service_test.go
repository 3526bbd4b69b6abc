package voice

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bartally/internal/core/apperror"
	"bartally/internal/core/id"
	"bartally/internal/domain/catalogs/item"
	"bartally/internal/domain/documents/stocktake"
	"bartally/internal/domain/uom"
)

type fakeCounter struct {
	doc      *stocktake.Stocktake
	countErr error

	calls      int
	gotDocID   id.ID
	gotLineID  id.ID
	gotFull    decimal.Decimal
	gotPartial decimal.Decimal
	gotSource  stocktake.CountSource
	gotActor   string
}

func (f *fakeCounter) GetByID(_ context.Context, _ id.ID) (*stocktake.Stocktake, error) {
	return f.doc, nil
}

func (f *fakeCounter) RecordCount(_ context.Context, docID, lineID id.ID, full, partial decimal.Decimal, source stocktake.CountSource, actor string) (*stocktake.CountResult, error) {
	f.calls++
	f.gotDocID = docID
	f.gotLineID = lineID
	f.gotFull = full
	f.gotPartial = partial
	f.gotSource = source
	f.gotActor = actor
	if f.countErr != nil {
		return nil, f.countErr
	}
	return &stocktake.CountResult{LineID: lineID}, nil
}

type fakeItems struct {
	items []*item.Item
}

func (f *fakeItems) ListActive(context.Context) ([]*item.Item, error) {
	return f.items, nil
}

func dec(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

// barSheet is a two-line sheet with catalog aliases available for both items.
func barSheet() (*stocktake.Stocktake, []*item.Item) {
	vodka := item.NewItem("ITM-00001", "Absolut Vodka 70cl", uom.CategorySpirits)
	vodka.Aliases = []string{"vodka", "absolut"}
	gin := item.NewItem("ITM-00002", "Tanqueray Gin 70cl", uom.CategorySpirits)
	gin.Aliases = []string{"gin"}

	doc := &stocktake.Stocktake{
		Lines: []stocktake.Line{
			{LineID: id.New(), LineNo: 1, ItemID: vodka.ID, ItemName: vodka.Name},
			{LineID: id.New(), LineNo: 2, ItemID: gin.ID, ItemName: gin.Name},
		},
	}
	return doc, []*item.Item{vodka, gin}
}

func TestApplyForwardsResolvedCount(t *testing.T) {
	doc, items := barSheet()
	counter := &fakeCounter{doc: doc}
	svc := NewService(counter, &fakeItems{items: items})

	stID := id.New()
	full := dec("2")
	partial := dec("0.5")
	res, err := svc.Apply(context.Background(), stID, Command{
		Action:         ActionCount,
		ItemIdentifier: "vodka",
		FullUnits:      &full,
		PartialUnits:   &partial,
	}, "maria")
	require.NoError(t, err)

	// Exactly the arguments a manual count would carry, source aside
	assert.Equal(t, 1, counter.calls)
	assert.Equal(t, stID, counter.gotDocID)
	assert.Equal(t, doc.Lines[0].LineID, counter.gotLineID)
	assert.True(t, counter.gotFull.Equal(full))
	assert.True(t, counter.gotPartial.Equal(partial))
	assert.Equal(t, stocktake.SourceVoice, counter.gotSource)
	assert.Equal(t, "maria", counter.gotActor)

	assert.Equal(t, doc.Lines[0].ItemID, res.Match.ItemID)
	assert.Equal(t, doc.Lines[0].LineID, res.Count.LineID)
}

func TestApplyUnspokenUnitsCountZero(t *testing.T) {
	doc, items := barSheet()
	counter := &fakeCounter{doc: doc}
	svc := NewService(counter, &fakeItems{items: items})

	_, err := svc.Apply(context.Background(), id.New(), Command{
		Action:         ActionCount,
		ItemIdentifier: "gin",
	}, "maria")
	require.NoError(t, err)

	assert.Equal(t, doc.Lines[1].LineID, counter.gotLineID)
	assert.True(t, counter.gotFull.IsZero())
	assert.True(t, counter.gotPartial.IsZero())
}

func TestApplyAmbiguousWritesNothing(t *testing.T) {
	gin := item.NewItem("ITM-00001", "House Gin", uom.CategorySpirits)
	vodka := item.NewItem("ITM-00002", "House Vodka", uom.CategorySpirits)
	doc := &stocktake.Stocktake{
		Lines: []stocktake.Line{
			{LineID: id.New(), LineNo: 1, ItemID: gin.ID, ItemName: gin.Name},
			{LineID: id.New(), LineNo: 2, ItemID: vodka.ID, ItemName: vodka.Name},
		},
	}
	counter := &fakeCounter{doc: doc}
	svc := NewService(counter, &fakeItems{items: []*item.Item{gin, vodka}})

	_, err := svc.Apply(context.Background(), id.New(), Command{
		Action:         ActionCount,
		ItemIdentifier: "house",
	}, "maria")
	assert.True(t, apperror.IsCode(err, apperror.CodeAmbiguousItem))
	assert.Equal(t, 0, counter.calls)
}

func TestApplyNoMatchWritesNothing(t *testing.T) {
	doc, items := barSheet()
	counter := &fakeCounter{doc: doc}
	svc := NewService(counter, &fakeItems{items: items})

	_, err := svc.Apply(context.Background(), id.New(), Command{
		Action:         ActionCount,
		ItemIdentifier: "chartreuse",
	}, "maria")
	assert.True(t, apperror.IsCode(err, apperror.CodeNoMatch))
	assert.Equal(t, 0, counter.calls)
}

func TestApplyFallsBackToLineNameSnapshot(t *testing.T) {
	doc, _ := barSheet()
	counter := &fakeCounter{doc: doc}
	// Catalog has no active items (item retired since the sheet opened)
	svc := NewService(counter, &fakeItems{})

	_, err := svc.Apply(context.Background(), id.New(), Command{
		Action:         ActionCount,
		ItemIdentifier: "absolut vodka",
	}, "maria")
	require.NoError(t, err)
	assert.Equal(t, doc.Lines[0].LineID, counter.gotLineID)
}

func TestApplyValidatesCommandShape(t *testing.T) {
	doc, items := barSheet()
	counter := &fakeCounter{doc: doc}
	svc := NewService(counter, &fakeItems{items: items})

	_, err := svc.Apply(context.Background(), id.New(), Command{
		Action:         "pour",
		ItemIdentifier: "vodka",
	}, "maria")
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = svc.Apply(context.Background(), id.New(), Command{
		Action: ActionCount,
	}, "maria")
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	assert.Equal(t, 0, counter.calls)
}

func TestApplySurfacesCountRejections(t *testing.T) {
	doc, items := barSheet()
	counter := &fakeCounter{doc: doc, countErr: apperror.NewLineLocked("ST-00001")}
	svc := NewService(counter, &fakeItems{items: items})

	// Locking rules fire in the counting path, exactly as for manual entry
	_, err := svc.Apply(context.Background(), id.New(), Command{
		Action:         ActionCount,
		ItemIdentifier: "vodka",
	}, "maria")
	assert.True(t, apperror.IsCode(err, apperror.CodeLineLocked))
}
