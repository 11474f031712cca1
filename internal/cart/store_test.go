package cart

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"VinoStore/internal/catalog"
	"VinoStore/internal/persist"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	sku1 = catalog.Product{ID: "sku1", Title: "Chianti", PriceCents: 1250, VariantID: "v1"}
	sku2 = catalog.Product{ID: "sku2", Title: "Greco", PriceCents: 1500, VariantID: "v2"}
)

// flakyKV fails saves while failing is set.
type flakyKV struct {
	*persist.MemKV
	failing bool
	loadErr error
}

func (f *flakyKV) Save(ctx context.Context, key string, data []byte) error {
	if f.failing {
		return persist.ErrUnavailable
	}
	return f.MemKV.Save(ctx, key, data)
}

func (f *flakyKV) Load(ctx context.Context, key string) ([]byte, bool, error) {
	if f.loadErr != nil {
		return nil, false, f.loadErr
	}
	return f.MemKV.Load(ctx, key)
}

func newTestStore(t *testing.T) (*Store, *persist.MemKV) {
	t.Helper()
	kv := persist.NewMemKV()
	s := NewStore(persist.SessionKey(persist.CartKey, "s1"), kv, zap.NewNop())
	require.NoError(t, s.Hydrate(context.Background()))
	return s, kv
}

func TestStore_FreeShippingScenario(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	st, err := s.AddItem(ctx, sku1, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, st.ItemCount)
	assert.Equal(t, int64(2500), st.SubtotalCents)
	assert.Equal(t, int64(495), st.ShippingCents)
	assert.Equal(t, int64(2995), st.TotalCents)

	st, err = s.AddItem(ctx, sku2, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, st.ItemCount)
	assert.Equal(t, int64(4000), st.SubtotalCents)
	assert.Equal(t, int64(0), st.ShippingCents)
	assert.Equal(t, int64(4000), st.TotalCents)
}

func TestStore_AddSameProductMerges(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.AddItem(ctx, sku1, 1)
	require.NoError(t, err)
	st, err := s.AddItem(ctx, sku1, 1)
	require.NoError(t, err)

	require.Len(t, st.Items, 1)
	assert.Equal(t, 2, st.Items[0].Quantity)
	assert.NotEqual(t, sku1.ID, st.Items[0].ID, "line id must differ from product id")
}

func TestStore_UpdateQuantityNonPositiveRemoves(t *testing.T) {
	for _, qty := range []int{0, -1} {
		s, _ := newTestStore(t)
		ctx := context.Background()

		st, err := s.AddItem(ctx, sku1, 3)
		require.NoError(t, err)
		id := st.Items[0].ID

		st, err = s.UpdateQuantity(ctx, id, qty)
		require.NoError(t, err)
		assert.Empty(t, st.Items, "qty=%d", qty)
		assert.Equal(t, int64(0), st.TotalCents)
	}
}

func TestStore_UpdateAndRemove(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	st, _ := s.AddItem(ctx, sku1, 1)
	st, _ = s.AddItem(ctx, sku2, 1)
	first := st.Items[0].ID

	st, err := s.UpdateQuantity(ctx, first, 4)
	require.NoError(t, err)
	assert.Equal(t, 5, st.ItemCount)

	st, err = s.RemoveItem(ctx, "li_unknown")
	require.NoError(t, err)
	assert.Len(t, st.Items, 2)

	st, err = s.RemoveItem(ctx, first)
	require.NoError(t, err)
	require.Len(t, st.Items, 1)
	assert.Equal(t, "sku2", st.Items[0].Product.ID)
}

func TestStore_ClearCart(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, _ = s.AddItem(ctx, sku1, 2)
	st, err := s.ClearCart(ctx)
	require.NoError(t, err)
	assert.Empty(t, st.Items)
	assert.Zero(t, st.ItemCount)
	assert.Zero(t, st.SubtotalCents)
	assert.Zero(t, st.ShippingCents)
	assert.Zero(t, st.TotalCents)
}

func TestStore_AddItemValidation(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.AddItem(ctx, sku1, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = s.AddItem(ctx, sku1, -2)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = s.AddItem(ctx, catalog.Product{ID: " "}, 1)
	assert.ErrorIs(t, err, ErrInvalidProduct)
	_, err = s.AddItem(ctx, catalog.Product{ID: "x", PriceCents: -1}, 1)
	assert.ErrorIs(t, err, ErrInvalidProduct)

	assert.Empty(t, s.Snapshot().Items)
}

func TestStore_TotalsInvariantUnderRandomOps(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	products := []catalog.Product{
		sku1, sku2,
		{ID: "sku3", PriceCents: 990},
		{ID: "sku4", PriceCents: 4200},
	}

	for i := 0; i < 500; i++ {
		cur := s.Snapshot()
		var (
			st  State
			err error
		)
		switch op := rng.Intn(4); {
		case op == 0 || len(cur.Items) == 0:
			st, err = s.AddItem(ctx, products[rng.Intn(len(products))], 1+rng.Intn(3))
		case op == 1:
			st, err = s.RemoveItem(ctx, cur.Items[rng.Intn(len(cur.Items))].ID)
		default:
			st, err = s.UpdateQuantity(ctx, cur.Items[rng.Intn(len(cur.Items))].ID, rng.Intn(6)-1)
		}
		require.NoError(t, err)

		var count int
		var subtotal int64
		seen := map[string]bool{}
		for _, it := range st.Items {
			require.GreaterOrEqual(t, it.Quantity, 1)
			require.False(t, seen[it.Product.ID], "duplicate line for %s", it.Product.ID)
			seen[it.Product.ID] = true
			count += it.Quantity
			subtotal += it.Product.PriceCents * int64(it.Quantity)
		}
		require.Equal(t, count, st.ItemCount)
		require.Equal(t, subtotal, st.SubtotalCents)
		require.Equal(t, st.SubtotalCents+st.ShippingCents, st.TotalCents)
		if len(st.Items) > 0 {
			require.Equal(t, st.SubtotalCents >= FreeShippingThresholdCents, st.ShippingCents == 0)
		}
	}
}

func TestStore_Visibility(t *testing.T) {
	s, kv := newTestStore(t)

	assert.True(t, s.OpenCart().IsOpen)
	assert.False(t, s.ToggleCart().IsOpen)
	assert.True(t, s.ToggleCart().IsOpen)
	assert.False(t, s.CloseCart().IsOpen)
	assert.Zero(t, kv.Len(), "visibility must not be persisted")
}

func TestStore_HydrationFlag(t *testing.T) {
	s := NewStore("vpl-cart:s1", persist.NewMemKV(), nil)
	assert.False(t, s.Snapshot().IsHydrated)

	var flips int
	s.Subscribe(func(st State) {
		if st.IsHydrated {
			flips++
		}
	})

	s.SetHydrated()
	s.SetHydrated()
	require.NoError(t, s.Hydrate(context.Background()))

	assert.True(t, s.Hydrated())
	assert.Equal(t, 1, flips)

	_, err := s.ClearCart(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Snapshot().IsHydrated)
}

func TestStore_HydrateRestoresPersistedItems(t *testing.T) {
	kv := persist.NewMemKV()
	key := persist.SessionKey(persist.CartKey, "s1")
	ctx := context.Background()

	first := NewStore(key, kv, nil)
	require.NoError(t, first.Hydrate(ctx))
	_, err := first.AddItem(ctx, sku1, 2)
	require.NoError(t, err)
	_ = first.OpenCart()

	second := NewStore(key, kv, nil)
	require.NoError(t, second.Hydrate(ctx))
	st := second.Snapshot()

	require.Len(t, st.Items, 1)
	assert.Equal(t, 2, st.ItemCount)
	assert.Equal(t, int64(2995), st.TotalCents)
	assert.False(t, st.IsOpen)
}

func TestStore_PersistedLayout(t *testing.T) {
	s, kv := newTestStore(t)
	_, err := s.AddItem(context.Background(), sku1, 1)
	require.NoError(t, err)

	data, found, err := kv.Load(context.Background(), s.Key())
	require.NoError(t, err)
	require.True(t, found)

	env, err := persist.Decode[persisted](data)
	require.NoError(t, err)
	require.Len(t, env.Items, 1)
	assert.Equal(t, "sku1", env.Items[0].Product.ID)
}

func TestStore_HydrateCorruptStartsEmpty(t *testing.T) {
	kv := persist.NewMemKV()
	require.NoError(t, kv.Save(context.Background(), "k", []byte("{not json")))

	s := NewStore("k", kv, nil)
	require.NoError(t, s.Hydrate(context.Background()))
	assert.True(t, s.Hydrated())
	assert.Empty(t, s.Snapshot().Items)
}

func TestStore_HydrateDropsInvalidLines(t *testing.T) {
	kv := persist.NewMemKV()
	data, err := persist.Encode(persisted{Items: []Item{
		{ID: "li_1", Product: sku1, Quantity: 2},
		{ID: "li_2", Product: sku2, Quantity: 0},
		{ID: "li_3", Product: sku1, Quantity: 1},
		{ID: "", Product: sku2, Quantity: 1},
	}})
	require.NoError(t, err)
	require.NoError(t, kv.Save(context.Background(), "k", data))

	s := NewStore("k", kv, nil)
	require.NoError(t, s.Hydrate(context.Background()))

	st := s.Snapshot()
	require.Len(t, st.Items, 1)
	assert.Equal(t, "li_1", st.Items[0].ID)
	assert.Equal(t, 2, st.ItemCount)
}

func TestStore_HydrateStorageErrorIsRetryable(t *testing.T) {
	kv := &flakyKV{MemKV: persist.NewMemKV(), loadErr: persist.ErrUnavailable}
	s := NewStore("k", kv, nil)

	err := s.Hydrate(context.Background())
	assert.True(t, errors.Is(err, persist.ErrUnavailable))
	assert.False(t, s.Hydrated())

	kv.loadErr = nil
	require.NoError(t, s.Hydrate(context.Background()))
	assert.True(t, s.Hydrated())
}

func TestStore_SaveFailureMarksDirtyAndFlushRecovers(t *testing.T) {
	kv := &flakyKV{MemKV: persist.NewMemKV()}
	s := NewStore("k", kv, nil)
	ctx := context.Background()
	require.NoError(t, s.Hydrate(ctx))

	kv.failing = true
	st, err := s.AddItem(ctx, sku1, 1)
	assert.True(t, IsPersistError(err))
	assert.True(t, st.Dirty)
	assert.Len(t, st.Items, 1, "transition applies despite the failed save")

	assert.Error(t, s.Flush(ctx))
	assert.True(t, s.Snapshot().Dirty)

	kv.failing = false
	require.NoError(t, s.Flush(ctx))
	assert.False(t, s.Snapshot().Dirty)

	_, found, err := kv.Load(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestStore_SubscribeSeesEveryTransition(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	var versions []uint64
	cancel := s.Subscribe(func(st State) {
		require.Equal(t, st.SubtotalCents+st.ShippingCents, st.TotalCents)
		versions = append(versions, st.Version)
	})

	_, _ = s.AddItem(ctx, sku1, 1)
	_ = s.ToggleCart()
	cancel()
	_, _ = s.AddItem(ctx, sku2, 1)

	require.Len(t, versions, 2)
	assert.Less(t, versions[0], versions[1])
}

func TestState_CheckoutLines(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	_, _ = s.AddItem(ctx, sku1, 2)
	st, _ := s.AddItem(ctx, sku2, 1)

	lines := st.CheckoutLines()
	require.Len(t, lines, 2)
	assert.Equal(t, "v1", lines[0].VariantID)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestStore_ChangesBeforeHydrateKeepPersistedCart(t *testing.T) {
	kv := persist.NewMemKV()
	key := persist.SessionKey(persist.CartKey, "s1")
	ctx := context.Background()

	first := NewStore(key, kv, nil)
	require.NoError(t, first.Hydrate(ctx))
	_, err := first.AddItem(ctx, sku1, 3)
	require.NoError(t, err)

	second := NewStore(key, kv, nil)
	_, err = second.AddItem(ctx, sku2, 1)
	assert.ErrorIs(t, err, ErrNotHydrated)
	_, err = second.UpdateQuantity(ctx, "li_x", 2)
	assert.ErrorIs(t, err, ErrNotHydrated)
	_, err = second.ClearCart(ctx)
	assert.ErrorIs(t, err, ErrNotHydrated)
	assert.False(t, IsPersistError(err))

	require.NoError(t, second.Hydrate(ctx))
	st := second.Snapshot()
	require.Len(t, st.Items, 1)
	assert.Equal(t, "sku1", st.Items[0].Product.ID)
	assert.Equal(t, 3, st.Items[0].Quantity)

	st, err = second.AddItem(ctx, sku2, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, st.ItemCount)
}

func TestStore_VisibilityWorksBeforeHydrate(t *testing.T) {
	s := NewStore("k", persist.NewMemKV(), nil)
	assert.True(t, s.OpenCart().IsOpen)
	assert.False(t, s.Hydrated())
}
