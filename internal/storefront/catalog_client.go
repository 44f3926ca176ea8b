package storefront

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"Storefront/internal/catalog"
)

var (
	ErrCatalogBadStatus   = errors.New("catalog bad status")
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	ErrCatalogMalformed   = errors.New("catalog malformed document")
)

const defaultClientTimeout = 5 * time.Second

// CatalogClient reads catalog documents over HTTP. List documents are decoded
// element by element: malformed or duplicate elements are dropped and logged,
// the rest of the list is kept.
type CatalogClient struct {
	BaseURL string
	Client  *http.Client
	Log     *zap.Logger
}

func NewCatalogClient(baseURL string, timeout time.Duration, log *zap.Logger) *CatalogClient {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = strings.TrimRight(baseURL, "/")
	}
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogClient{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
		Log:     log,
	}
}

func (c *CatalogClient) Categories(ctx context.Context) ([]catalog.Category, error) {
	return getList(ctx, c, catalog.DocCategories, categoryKey)
}

func (c *CatalogClient) AllCategories(ctx context.Context) ([]catalog.Category, error) {
	return getList(ctx, c, catalog.DocAllCategories, categoryKey)
}

func (c *CatalogClient) Kits(ctx context.Context) ([]catalog.Kit, error) {
	return getList(ctx, c, catalog.DocKits, func(k catalog.Kit) string { return k.ID })
}

func (c *CatalogClient) PremiumProducts(ctx context.Context) ([]catalog.ProductGroup, error) {
	return c.groups(ctx, catalog.DocPremiumProducts)
}

func (c *CatalogClient) NonPremiumProducts(ctx context.Context) ([]catalog.ProductGroup, error) {
	return c.groups(ctx, catalog.DocNonPremiumProducts)
}

func (c *CatalogClient) AllProducts(ctx context.Context) ([]catalog.ProductGroup, error) {
	return c.groups(ctx, catalog.DocAllProducts)
}

func (c *CatalogClient) Discounts(ctx context.Context) ([]catalog.Discount, error) {
	return getList(ctx, c, catalog.DocDiscounts, func(d catalog.Discount) string { return d.ID })
}

func (c *CatalogClient) PriceRanges(ctx context.Context) (catalog.PriceRangeTable, error) {
	var t catalog.PriceRangeTable
	if err := c.getObject(ctx, catalog.DocPriceRanges, &t); err != nil {
		return catalog.PriceRangeTable{}, err
	}
	if err := t.Validate(); err != nil {
		return catalog.PriceRangeTable{}, errors.Wrap(ErrCatalogMalformed, err.Error())
	}
	return t, nil
}

func (c *CatalogClient) Announcement(ctx context.Context) (catalog.Announcement, error) {
	var a catalog.Announcement
	if err := c.getObject(ctx, catalog.DocAnnouncement, &a); err != nil {
		return catalog.Announcement{}, err
	}
	return a, nil
}

// groups decodes a grouped product list and drops malformed products inside
// otherwise valid groups.
func (c *CatalogClient) groups(ctx context.Context, doc string) ([]catalog.ProductGroup, error) {
	type rawGroup struct {
		CategoryID   string            `json:"category_id"`
		CategoryName string            `json:"category_name"`
		Products     []json.RawMessage `json:"products"`
	}

	raw, err := getList(ctx, c, doc, func(g rawGroup) string { return g.CategoryID })
	if err != nil {
		return nil, err
	}

	out := make([]catalog.ProductGroup, 0, len(raw))
	for _, rg := range raw {
		g := catalog.ProductGroup{CategoryID: rg.CategoryID, CategoryName: rg.CategoryName}
		if err := g.Validate(); err != nil {
			c.drop(doc, -1, err)
			continue
		}
		g.Products = decodeElements(c, doc, rg.Products, func(p catalog.Product) string { return p.ID })
		out = append(out, g)
	}
	return out, nil
}

func categoryKey(c catalog.Category) string { return c.ID }

func getList[T any](ctx context.Context, c *CatalogClient, doc string, key func(T) string) ([]T, error) {
	var raw []json.RawMessage
	if err := c.getObject(ctx, doc, &raw); err != nil {
		return nil, err
	}
	return decodeElements(c, doc, raw, key), nil
}

func decodeElements[T any](c *CatalogClient, doc string, raw []json.RawMessage, key func(T) string) []T {
	out := make([]T, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))

	for i, msg := range raw {
		var v T
		if err := json.Unmarshal(msg, &v); err != nil {
			c.drop(doc, i, err)
			continue
		}
		if vv, ok := any(v).(interface{ Validate() error }); ok {
			if err := vv.Validate(); err != nil {
				c.drop(doc, i, err)
				continue
			}
		}
		k := key(v)
		if _, dup := seen[k]; dup {
			c.drop(doc, i, errors.Errorf("duplicate id %q", k))
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}

func (c *CatalogClient) drop(doc string, index int, err error) {
	c.Log.Warn("dropping malformed catalog element",
		zap.String("document", doc),
		zap.Int("index", index),
		zap.Error(err),
	)
}

func (c *CatalogClient) getObject(ctx context.Context, doc string, v any) error {
	path, ok := catalog.Paths[doc]
	if !ok {
		return errors.Wrap(catalog.ErrUnknownDocument, doc)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return errors.Wrapf(err, "build request for %s", doc)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return errors.Wrapf(ErrCatalogUnavailable, "get %s: %v", doc, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return errors.Wrapf(ErrCatalogBadStatus, "get %s: status=%d", doc, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return errors.Wrapf(ErrCatalogMalformed, "decode %s: %v", doc, err)
	}
	return nil
}
