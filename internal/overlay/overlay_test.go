package overlay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilupskalvis/cmc/internal/models"
)

func baseItem(id, title string) models.Item {
	it := models.Item{ID: id, Collection: "posts"}
	it.Fields.Set("title", models.Text(title))
	return it
}

var seqCounter uint64

func op(kind models.OpKind, itemID string, item *models.Item) *models.PendingOperation {
	seqCounter++
	return &models.PendingOperation{
		ID:         models.NewOperationID(),
		Seq:        seqCounter,
		Kind:       kind,
		Collection: "posts",
		ItemID:     itemID,
		Item:       item,
		IssuedAt:   time.Now(),
	}
}

func createOp(id, title string) *models.PendingOperation {
	it := baseItem(id, title)
	it.Draft = true
	return op(models.OpCreate, id, &it)
}

func updateOp(id, title string) *models.PendingOperation {
	it := baseItem(id, title)
	return op(models.OpUpdate, id, &it)
}

func deleteOp(id string) *models.PendingOperation {
	return op(models.OpDelete, id, nil)
}

func titles(items []models.Item) []string {
	out := make([]string, len(items))
	for i := range items {
		v, _ := items[i].Fields.Get("title")
		out[i] = v.Text
	}
	return out
}

func ids(items []models.Item) []string {
	out := make([]string, len(items))
	for i := range items {
		out[i] = items[i].ID
	}
	return out
}

func TestCombine_EmptyOpsReturnsBaseCopy(t *testing.T) {
	base := []models.Item{baseItem("a", "A"), baseItem("b", "B")}

	view := Combine(base, nil)

	assert.Equal(t, ids(base), ids(view))
	// The copy shares no storage with base.
	view[0].Fields.Set("title", models.Text("mutated"))
	title, _ := base[0].Fields.Get("title")
	assert.Equal(t, "A", title.Text)
}

func TestCombine_NeverMutatesBase(t *testing.T) {
	base := []models.Item{baseItem("a", "A"), baseItem("b", "B")}
	ops := []*models.PendingOperation{
		createOp("pending-1", "new"),
		updateOp("a", "A2"),
		deleteOp("b"),
	}

	before := models.CloneItems(base)
	_ = Combine(base, ops)

	require.Len(t, base, len(before))
	for i := range base {
		assert.Equal(t, before[i].ID, base[i].ID)
		assert.True(t, before[i].Fields.Equal(base[i].Fields))
	}
}

func TestCombine_CreatePrependsNewestFirst(t *testing.T) {
	base := []models.Item{baseItem("a", "A")}
	ops := []*models.PendingOperation{
		createOp("pending-1", "first"),
		createOp("pending-2", "second"),
	}

	view := Combine(base, ops)

	assert.Equal(t, []string{"pending-2", "pending-1", "a"}, ids(view))
	assert.True(t, view[0].Draft)
}

func TestCombine_CreateSkippedWhenIDPresent(t *testing.T) {
	base := []models.Item{baseItem("a", "A")}
	ops := []*models.PendingOperation{createOp("a", "shadow")}

	view := Combine(base, ops)

	require.Len(t, view, 1)
	assert.Equal(t, []string{"A"}, titles(view))
}

func TestCombine_UpdateReplacesInPlace(t *testing.T) {
	base := []models.Item{baseItem("a", "A"), baseItem("b", "B")}
	ops := []*models.PendingOperation{updateOp("b", "B-edited")}

	view := Combine(base, ops)

	assert.Equal(t, []string{"a", "b"}, ids(view))
	assert.Equal(t, []string{"A", "B-edited"}, titles(view))
}

func TestCombine_UpdateOnMissingItemDropped(t *testing.T) {
	base := []models.Item{baseItem("a", "A")}
	ops := []*models.PendingOperation{updateOp("ghost", "?")}

	view := Combine(base, ops)

	assert.Equal(t, []string{"a"}, ids(view))
}

func TestCombine_DeleteRemoves(t *testing.T) {
	base := []models.Item{baseItem("a", "A"), baseItem("b", "B")}
	ops := []*models.PendingOperation{deleteOp("a")}

	view := Combine(base, ops)

	assert.Equal(t, []string{"b"}, ids(view))
}

func TestCombine_CreateThenDeleteCollapses(t *testing.T) {
	base := []models.Item{baseItem("a", "A")}
	ops := []*models.PendingOperation{
		createOp("pending-1", "ephemeral"),
		deleteOp("pending-1"),
	}

	view := Combine(base, ops)

	assert.Equal(t, []string{"a"}, ids(view))
}

func TestCombine_SecondUpdateWins(t *testing.T) {
	base := []models.Item{baseItem("a", "f=0")}
	ops := []*models.PendingOperation{
		updateOp("a", "f=1"),
		updateOp("a", "f=2"),
	}

	view := Combine(base, ops)

	require.Len(t, view, 1)
	assert.Equal(t, []string{"f=2"}, titles(view))
}

func TestCombine_UpdateAppliesToPendingCreate(t *testing.T) {
	ops := []*models.PendingOperation{
		createOp("pending-1", "draft"),
		updateOp("pending-1", "draft-edited"),
	}

	view := Combine(nil, ops)

	require.Len(t, view, 1)
	assert.Equal(t, []string{"draft-edited"}, titles(view))
}

func TestCombine_ToleratesMalformedOps(t *testing.T) {
	base := []models.Item{baseItem("a", "A")}
	ops := []*models.PendingOperation{
		nil,
		{Kind: models.OpCreate, Collection: "posts"}, // create without snapshot
		{Kind: models.OpUpdate, Collection: "posts", ItemID: "a"}, // update without snapshot
	}

	view := Combine(base, ops)

	assert.Equal(t, []string{"a"}, ids(view))
	assert.Equal(t, []string{"A"}, titles(view))
}

func TestOverlay_AddRemove(t *testing.T) {
	o := New()
	opA := createOp("pending-1", "x")
	opB := updateOp("a", "y")
	o.Add(opA)
	o.Add(opB)

	require.Equal(t, 2, o.Len())

	assert.True(t, o.Remove(opA.ID))
	assert.False(t, o.Remove(opA.ID), "second removal of the same op must report absence")
	assert.Equal(t, 1, o.Len())
}

func TestOverlay_ForCollectionKeepsIssueOrder(t *testing.T) {
	o := New()
	first := createOp("pending-1", "x")
	other := &models.PendingOperation{ID: models.NewOperationID(), Kind: models.OpDelete, Collection: "authors", ItemID: "z"}
	second := updateOp("a", "y")
	o.Add(first)
	o.Add(other)
	o.Add(second)

	got := o.ForCollection("posts")
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, second.ID, got[1].ID)
	assert.Less(t, got[0].Seq, got[1].Seq)
}

func TestOverlay_PendingKinds(t *testing.T) {
	o := New()
	o.Add(createOp("pending-1", "x"))
	upd := updateOp("a", "y")
	o.Add(upd)
	o.Add(deleteOp("a")) // later op on same item wins

	kinds := o.PendingKinds("posts")
	assert.Equal(t, models.OpCreate, kinds["pending-1"])
	assert.Equal(t, models.OpDelete, kinds["a"])
}
