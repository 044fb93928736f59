package merchandise

import (
	"context"
	"testing"

	"github.com/angelmondragon/eventhub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/eventhub-backend/pkg/db/models"
	"github.com/angelmondragon/eventhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/eventhub-backend/pkg/errors"
	"github.com/angelmondragon/eventhub-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.New(t).DB()
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return svc, conn
}

func price(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func intPtr(v int) *int { return &v }

func TestServiceCreateConvertsPriceToCents(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	dto, err := svc.Create(ctx, CreateMerchandiseRequest{Name: " Tee ", Description: "cotton", Price: price("10.5"), Stock: intPtr(5)})
	require.NoError(t, err)
	assert.Equal(t, "Tee", dto.Name)
	assert.Equal(t, "10.50", dto.Price.String())

	var stored models.Merchandise
	require.NoError(t, conn.First(&stored, "id = ?", dto.ID).Error)
	assert.Equal(t, int64(1050), stored.PriceCents)
	assert.Equal(t, 5, stored.Stock)
}

func TestServiceCreateValidates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []CreateMerchandiseRequest{
		{Name: "", Price: price("1"), Stock: intPtr(1)},
		{Name: "Cap", Price: nil, Stock: intPtr(1)},
		{Name: "Cap", Price: price("1.001"), Stock: intPtr(1)},
		{Name: "Cap", Price: price("-3"), Stock: intPtr(1)},
		{Name: "Cap", Price: price("3"), Stock: intPtr(-1)},
	}
	for _, req := range cases {
		_, err := svc.Create(ctx, req)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "expected validation error for %+v, got %v", req, err)
	}
}

func TestServiceUpdatePartial(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	dto, err := svc.Create(ctx, CreateMerchandiseRequest{Name: "Mug", Description: "ceramic", Price: price("8"), Stock: intPtr(3)})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, dto.ID, UpdateMerchandiseRequest{Price: price("9.99"), Stock: intPtr(0)})
	require.NoError(t, err)
	assert.Equal(t, "Mug", updated.Name)
	assert.Equal(t, "ceramic", updated.Description)
	assert.Equal(t, "9.99", updated.Price.String())
	assert.Equal(t, 0, updated.Stock)

	_, err = svc.Update(ctx, uuid.New(), UpdateMerchandiseRequest{Stock: intPtr(1)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestServiceUpdateKeepsConcurrentReservations(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	dto, err := svc.Create(ctx, CreateMerchandiseRequest{Name: "Scarf", Price: price("10"), Stock: intPtr(5)})
	require.NoError(t, err)

	// a cart reserves 3 units after Update has read the row
	reserved := false
	require.NoError(t, conn.Callback().Update().Before("gorm:update").Register("test:reserve", func(tx *gorm.DB) {
		if reserved || tx.Statement.Table != "merchandise" {
			return
		}
		reserved = true
		tx.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE merchandise SET stock = stock - ? WHERE id = ? AND stock >= ?", 3, dto.ID, 3)
	}))

	updated, err := svc.Update(ctx, dto.ID, UpdateMerchandiseRequest{Price: price("12")})
	require.NoError(t, err)
	require.True(t, reserved)
	assert.Equal(t, "12.00", updated.Price.String())
	assert.Equal(t, 2, updated.Stock)

	var stored models.Merchandise
	require.NoError(t, conn.First(&stored, "id = ?", dto.ID).Error)
	assert.Equal(t, 2, stored.Stock)
	assert.Equal(t, int64(1200), stored.PriceCents)
}

func TestServiceDelete(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	free, err := svc.Create(ctx, CreateMerchandiseRequest{Name: "Poster", Price: price("4"), Stock: intPtr(1)})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, free.ID))

	_, err = svc.Get(ctx, free.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.True(t, pkgerrors.IsCode(svc.Delete(ctx, free.ID), pkgerrors.CodeNotFound))

	held, err := svc.Create(ctx, CreateMerchandiseRequest{Name: "Hoodie", Price: price("40"), Stock: intPtr(2)})
	require.NoError(t, err)

	user := models.User{Email: "h@example.com", Username: "h", PasswordHash: "x", Role: enums.UserRoleUser}
	require.NoError(t, conn.Create(&user).Error)
	cart := models.Cart{UserID: user.ID, Status: enums.CartStatusActive}
	require.NoError(t, conn.Create(&cart).Error)
	require.NoError(t, conn.Create(&models.CartItem{CartID: cart.ID, MerchandiseID: held.ID, Quantity: 1, UnitPriceCents: 4000}).Error)

	err = svc.Delete(ctx, held.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestServiceListPages(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		_, err := svc.Create(ctx, CreateMerchandiseRequest{Name: name, Price: price("1"), Stock: intPtr(1)})
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, pagination.Params{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.NotEmpty(t, page.NextCursor)

	all, err := svc.List(ctx, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 3)
	assert.Empty(t, all.NextCursor)

	_, err = svc.List(ctx, pagination.Params{Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
