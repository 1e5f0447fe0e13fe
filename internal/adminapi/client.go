package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/svpecas/catalogd/internal/app"
	"github.com/svpecas/catalogd/internal/catalog"
	"github.com/svpecas/catalogd/internal/walink"
	"github.com/svpecas/catalogd/internal/webserver"
	"go.uber.org/zap"
)

// Public endpoints used by the client-facing page: browse the assigned
// catalog and turn a selection into a WhatsApp order link. No auth, same as
// the legacy ?cliente= page.
func registerClientRoutes() {
	webserver.PubGET("/catalog/:key", getResolvedCatalog)
	webserver.PubPOST("/catalog/:key/order", postOrder)
}

// getResolvedCatalog joins the client's items against the shared database.
// Codes missing from the database are reported, not fatal; those items are
// simply left out of the list.
func getResolvedCatalog(c echo.Context) error {
	ctx := c.Request().Context()
	a := getApp(c)
	cat, _, err := a.Repository().LoadClientCatalog(ctx, c.Param("key"))
	if err != nil {
		return failFor(c, err, "catalog")
	}
	db, _, err := a.Repository().LoadProductDatabase(ctx)
	if err != nil {
		return failFor(c, err, "product database")
	}
	resolved, missing := catalog.ResolveClientItems(cat, db, catalog.ResolveOptions{
		PreferEmbedded: a.Config().Catalog.PreferEmbedded,
	})
	if len(missing) > 0 {
		zap.L().Warn("client: catalog references unknown codes",
			zap.String("key", c.Param("key")), zap.Strings("missing", missing))
	}
	return ok(c, map[string]interface{}{
		"cliente":       cat.ClientName,
		"vendedor":      cat.SellerName,
		"pecas":         resolved,
		"missing_codes": missing,
	})
}

type orderPayload struct {
	Items []struct {
		Code     string `json:"codigo"`
		Quantity int    `json:"quantidade"`
	} `json:"itens"`
}

// postOrder formats the pre-filled WhatsApp link for the selected items.
// Selected codes must resolve against the catalog's own resolved list.
func postOrder(c echo.Context) error {
	var payload orderPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse order", err.Error())
	}
	ctx := c.Request().Context()
	a := getApp(c)
	key := c.Param("key")
	cat, _, err := a.Repository().LoadClientCatalog(ctx, key)
	if err != nil {
		return failFor(c, err, "catalog")
	}
	db, _, err := a.Repository().LoadProductDatabase(ctx)
	if err != nil {
		return failFor(c, err, "product database")
	}
	resolved, _ := catalog.ResolveClientItems(cat, db, catalog.ResolveOptions{
		PreferEmbedded: a.Config().Catalog.PreferEmbedded,
	})

	byCode := make(map[string]string, len(resolved))
	for _, item := range resolved {
		if _, seen := byCode[item.Code]; !seen {
			byCode[item.Code] = item.Name
		}
	}

	items := make([]walink.OrderItem, 0, len(payload.Items))
	for _, sel := range payload.Items {
		name, found := byCode[sel.Code]
		if !found {
			return fail(c, http.StatusBadRequest, "UNKNOWN_ITEM",
				"Selected item is not in this catalog", map[string]string{"codigo": sel.Code})
		}
		items = append(items, walink.OrderItem{Name: name, Code: sel.Code, Quantity: sel.Quantity})
	}

	link, err := walink.BuildLink(cat.SellerContact, cat.ClientName, items)
	if err != nil {
		return failFor(c, err, "order")
	}
	ref := walink.NewOrderRef()
	a.Bus().Publish(app.TopicOrderRequested, key, ref)
	zap.L().Info("client: order link built",
		zap.String("key", key), zap.String("ref", ref), zap.Int("items", len(items)))
	return ok(c, map[string]interface{}{"link": link, "ref": ref})
}
