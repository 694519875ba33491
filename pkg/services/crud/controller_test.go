package crud

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rcm-tools/rcm-atlas/pkg/client"
	"github.com/rcm-tools/rcm-atlas/pkg/models/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCrudFixture(t *testing.T, handler http.HandlerFunc) (*Controller[api.Payer], *int) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := client.New(client.Options{BaseURL: srv.URL})
	require.NoError(t, err)

	endpoint, err := Lookup("payers")
	require.NoError(t, err)
	return NewController[api.Payer](c, endpoint), &calls
}

func TestList_DefaultsPaging(t *testing.T) {
	ctrl, _ := newCrudFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/Payers", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("pageNumber"))
		assert.Equal(t, "25", r.URL.Query().Get("pageSize"))
		assert.Empty(t, r.URL.Query().Get("search"))
		_, _ = w.Write([]byte(`{"success":true,"data":{
			"items":[{"id":"1","name":"Aetna","payerCode":"AET"}],
			"totalCount":1,"pageNumber":1,"pageSize":25}}`))
	})

	result, err := ctrl.List(context.Background(), api.Page{})

	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalCount)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "Aetna", result.Items[0].Name)
}

func TestList_PassesSearchAndPaging(t *testing.T) {
	ctrl, _ := newCrudFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.URL.Query().Get("pageNumber"))
		assert.Equal(t, "50", r.URL.Query().Get("pageSize"))
		assert.Equal(t, "aet", r.URL.Query().Get("search"))
		_, _ = w.Write([]byte(`{"success":true,"data":{"items":[],"totalCount":0}}`))
	})

	_, err := ctrl.List(context.Background(), api.Page{Number: 3, Size: 50, Search: "aet"})
	require.NoError(t, err)
}

func TestCreate_InvalidPayload_NeverHitsNetwork(t *testing.T) {
	ctrl, calls := newCrudFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	_, err := ctrl.Create(context.Background(), api.Payer{Name: "Aetna"})

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Fields, 1)
	assert.Equal(t, "PayerCode", ve.Fields[0].Field)
	assert.Equal(t, "is required", ve.Fields[0].Message)
	assert.Zero(t, *calls)
}

func TestCreate_ValidPayload_ReturnsCreatedEntity(t *testing.T) {
	ctrl, _ := newCrudFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":"9","name":"Aetna","payerCode":"AET"}}`))
	})

	created, err := ctrl.Create(context.Background(), api.Payer{Name: "Aetna", PayerCode: "AET"})

	require.NoError(t, err)
	assert.Equal(t, "9", created.ID)
}

func TestUpdate_InvalidPayload_NeverHitsNetwork(t *testing.T) {
	ctrl, calls := newCrudFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	_, err := ctrl.Update(context.Background(), "9", api.Payer{})

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Fields, 2)
	assert.Zero(t, *calls)
}

func TestDelete_TargetsItemPath(t *testing.T) {
	ctrl, _ := newCrudFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/Payers/9", r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	require.NoError(t, ctrl.Delete(context.Background(), "9"))
}

func TestCatalog_CoversEverySettingsScreen(t *testing.T) {
	expected := []string{
		"entities", "fee-schedules", "payers", "plans",
		"providers", "roles", "users", "zip-geo",
	}
	assert.Equal(t, expected, SupportedEntities())
}

func TestLookup_UnknownEntity(t *testing.T) {
	_, err := Lookup("invoices")
	require.Error(t, err)
}
